package service_test

import (
	"testing"
	"time"

	"git.sr.ht/~jakintosh/tasknet/internal/service"
	"git.sr.ht/~jakintosh/tasknet/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

func TestNew_CreatesService(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	if env.Service == nil {
		t.Fatal("expected non-nil service")
	}
	if env.Service.AccessTTL() != service.DefaultAccessTTL {
		t.Errorf("AccessTTL = %v", env.Service.AccessTTL())
	}
	if env.Service.RefreshTTL() != service.DefaultRefreshTTL {
		t.Errorf("RefreshTTL = %v", env.Service.RefreshTTL())
	}
}

func TestNew_CustomTTL(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithTTL(t, time.Second, time.Minute)

	if env.Service.AccessTTL() != time.Second || env.Service.RefreshTTL() != time.Minute {
		t.Errorf("TTLs = %v, %v", env.Service.AccessTTL(), env.Service.RefreshTTL())
	}
}

func TestPasswordMode_Cost(t *testing.T) {
	t.Parallel()

	if got := service.PasswordModeProduction.Cost(); got != bcrypt.DefaultCost {
		t.Errorf("production cost = %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := service.PasswordModeTesting.Cost(); got != bcrypt.MinCost {
		t.Errorf("testing cost = %d, want %d", got, bcrypt.MinCost)
	}
}

func TestTokenKind_String(t *testing.T) {
	t.Parallel()

	if service.TokenAccess.String() != "access" || service.TokenRefresh.String() != "refresh" {
		t.Errorf("kinds = %s, %s", service.TokenAccess, service.TokenRefresh)
	}
}
