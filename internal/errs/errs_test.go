package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified auth", New(Auth, "token revoked"), Auth},
		{"classified network", Newf(Network, "HTTP %d", 502), Network},
		{"wrapped in fmt chain", fmt.Errorf("search: %w", New(API, "not_in_channel")), API},
		{"plain error", errors.New("boom"), Unknown},
		{"nil-adjacent", fmt.Errorf("outer: %w", errors.New("inner")), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Network, cause, "search request")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
	if !strings.Contains(err.Error(), "search request") {
		t.Errorf("error text %q missing annotation", err.Error())
	}
	if !strings.Contains(err.Error(), "network") {
		t.Errorf("error text %q missing kind prefix", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(New(Auth, "invalid_auth")) {
		t.Error("auth errors are fatal")
	}
	if !IsFatal(New(API, "thread not found")) {
		t.Error("api errors are fatal")
	}
	if IsFatal(New(Network, "timeout")) {
		t.Error("network errors are not fatal by classification")
	}
	if IsFatal(nil) {
		t.Error("nil is never fatal")
	}
}

func TestIsKind(t *testing.T) {
	err := Wrapf(Parse, errors.New("unexpected EOF"), "decode %s response", "search")
	if !IsKind(err, Parse) {
		t.Error("IsKind(Parse) = false")
	}
	if IsKind(err, Auth) {
		t.Error("IsKind(Auth) = true for parse error")
	}
}
