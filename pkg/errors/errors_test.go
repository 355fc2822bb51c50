package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New(ErrCodeInvalidDirection, "未知方向「%s」", "斜"), "INVALID_DIRECTION: 未知方向「斜」"},
		{Wrap(ErrCodeNetwork, errors.New("connection refused"), "onebot %s", "send_group_msg"),
			"NETWORK_ERROR: onebot send_group_msg: connection refused"},
		{New(ErrCodeInternal, "100%% done"), "INTERNAL_ERROR: 100% done"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	err := Wrap(ErrCodeTimeout, context.DeadlineExceeded, "wolfram")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("std errors.Is should see the cause")
	}
	if errors.Unwrap(err) != context.DeadlineExceeded {
		t.Error("Unwrap should return the cause")
	}
}

func TestIsAndGetCode(t *testing.T) {
	inner := New(ErrCodeInvalidName, "bad name")
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"direct", New(ErrCodeQuoteMissing, "x"), ErrCodeQuoteMissing, true},
		{"other code", New(ErrCodeQuoteMissing, "x"), ErrCodeMemberMissing, false},
		{"fmt wrapped", fmt.Errorf("add quote: %w", inner), ErrCodeInvalidName, true},
		{"outermost wins", Wrap(ErrCodeUpstream, inner, "outer"), ErrCodeInvalidName, false},
		{"plain", errors.New("plain"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInternal, false},
		{"empty code", errors.New("plain"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}

	if GetCode(Wrap(ErrCodeUpstream, inner, "outer")) != ErrCodeUpstream {
		t.Error("GetCode should return the outermost code")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode of a plain error should be empty")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{New(ErrCodeMemberMissing, "群友「%s」不存在", "小明"), "群友「小明」不存在"},
		{Wrap(ErrCodeDecode, errors.New("gif: bad header"), "无法识别的图片格式"), "无法识别的图片格式"},
		{fmt.Errorf("upload: %w", New(ErrCodeEmptyAnimation, "动图没有帧")), "动图没有帧"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
