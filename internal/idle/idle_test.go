package idle

import (
	"testing"

	"github.com/natterhub/natter/internal/config"
)

func TestNew_ScheduleValidation(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"every 30 minutes", "*/30 * * * *", false},
		{"hourly", "0 * * * *", false},
		{"garbage", "whenever", true},
		{"too few fields", "* *", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(config.IdleConfig{Schedule: tt.schedule}, "bot", nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(schedule=%q) err = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

func TestSplitChannelRef(t *testing.T) {
	tests := []struct {
		ref     string
		channel string
		chatID  string
	}{
		{"telegram:12345", "telegram", "12345"},
		{"discord:98765", "discord", "98765"},
		{"telegram:-100123:thread", "telegram", "-100123:thread"},
		{"barechat", "", "barechat"},
	}

	for _, tt := range tests {
		channel, chatID := splitChannelRef(tt.ref)
		if channel != tt.channel || chatID != tt.chatID {
			t.Errorf("splitChannelRef(%q) = %q, %q; want %q, %q", tt.ref, channel, chatID, tt.channel, tt.chatID)
		}
	}
}
