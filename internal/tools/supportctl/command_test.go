package supportctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/sandeepkv93/support-space-backend/internal/config"
	"github.com/sandeepkv93/support-space-backend/internal/di"
	"github.com/sandeepkv93/support-space-backend/internal/tools/common"
)

func setCLIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:"+t.Name()+"?mode=memory&cache=shared")
	t.Setenv("SESSION_SECRET", "cli-test-secret-cli-test-secret-0000")
	t.Setenv("REDIS_ADDR", "")
}

func execute(t *testing.T, opts *options, args ...string) (common.CIResult, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--ci", "--env-file", ""}, args...))
	err := cmd.ExecuteContext(t.Context())

	var res common.CIResult
	if line := strings.TrimSpace(out.String()); line != "" {
		if jsonErr := json.Unmarshal([]byte(line), &res); jsonErr != nil {
			t.Fatalf("decode ci output %q: %v", line, jsonErr)
		}
	}
	return res, err
}

func TestCreateAdminCommand(t *testing.T) {
	setCLIEnv(t)
	res, err := execute(t, &options{initTools: di.InitializeAdminTools},
		"users", "create-admin", "--email", "Admin@Example.com", "--password", "Passw0rd", "--name", "Ann Lee")
	if err != nil {
		t.Fatalf("create-admin: %v", err)
	}
	if !res.OK || len(res.Details) != 2 || res.Details[1] != "email=admin@example.com" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCreateAdminCommandPasswordFromEnv(t *testing.T) {
	setCLIEnv(t)
	t.Setenv(adminPasswordEnv, "Passw0rd")
	res, err := execute(t, &options{initTools: di.InitializeAdminTools},
		"users", "create-admin", "--email", "root@example.com", "--name", "Root Admin")
	if err != nil || !res.OK {
		t.Fatalf("create-admin: %v %+v", err, res)
	}
}

func TestCreateAdminCommandValidationFailure(t *testing.T) {
	setCLIEnv(t)
	res, err := execute(t, &options{initTools: di.InitializeAdminTools},
		"users", "create-admin", "--email", "not-an-email", "--password", "Passw0rd", "--name", "Ann Lee")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if res.OK || res.Error == "" {
		t.Fatalf("expected failed ci result, got %+v", res)
	}
}

func TestSessionsCleanupCommand(t *testing.T) {
	setCLIEnv(t)
	res, err := execute(t, &options{initTools: di.InitializeAdminTools}, "sessions", "cleanup")
	if err != nil {
		t.Fatalf("sessions cleanup: %v", err)
	}
	if !res.OK || len(res.Details) != 1 || res.Details[0] != "deleted=0" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCommandReportsWiringFailure(t *testing.T) {
	setCLIEnv(t)
	opts := &options{initTools: func(context.Context, *config.Config, *slog.Logger) (*di.AdminTools, func(), error) {
		return nil, nil, errors.New("database unreachable")
	}}
	res, err := execute(t, opts, "sessions", "cleanup")
	if !errors.Is(err, ErrCommandFailed) || !strings.Contains(err.Error(), "database unreachable") {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Error != "database unreachable" {
		t.Fatalf("unexpected ci result: %+v", res)
	}
}

func TestConfigErrorSkipsCIOutput(t *testing.T) {
	setCLIEnv(t)
	t.Setenv("DATABASE_DRIVER", "oracle")
	res, err := execute(t, &options{initTools: di.InitializeAdminTools}, "sessions", "cleanup")
	if err == nil || res.Title != "" {
		t.Fatalf("expected config error without ci output, got err=%v res=%+v", err, res)
	}
}
