package engine

import "testing"

func TestLockManager_LockUnlock(t *testing.T) {
	m := NewLockManager()

	if m.IsLocked("c1", "") {
		t.Fatal("fresh manager should hold no locks")
	}

	m.Lock("c1", "")
	if !m.IsLocked("c1", "") {
		t.Error("c1 should be locked")
	}
	if m.IsLocked("c2", "") {
		t.Error("c2 should be independent of c1")
	}

	m.Unlock("c1", "")
	if m.IsLocked("c1", "") {
		t.Error("c1 should be released")
	}
}

func TestLockManager_SwarmKeying(t *testing.T) {
	m := NewLockManager()

	m.Lock("c1", "botA")
	if m.IsLocked("c1", "botB") {
		t.Error("botB on c1 must not see botA's lock")
	}
	if m.IsLocked("c1", "") {
		t.Error("channel-only key must not see per-bot lock")
	}
	if !m.IsLocked("c1", "botA") {
		t.Error("botA's lock on c1 should be held")
	}
}

func TestLockManager_TryAcquire(t *testing.T) {
	m := NewLockManager()

	release, ok := m.TryAcquire("c1", "")
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := m.TryAcquire("c1", ""); ok {
		t.Error("second acquire on held lock should fail")
	}

	release()
	if m.IsLocked("c1", "") {
		t.Error("release should free the lock")
	}
	if _, ok := m.TryAcquire("c1", ""); !ok {
		t.Error("acquire after release should succeed")
	}
}
