package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/application/dto"
	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/memory"
	"github.com/jhoicas/moysklad-audit/internal/interfaces/cli"
	"github.com/jhoicas/moysklad-audit/pkg/config"
	"github.com/jhoicas/moysklad-audit/pkg/jwt"
)

const testSecret = "cli-test-secret"

type stubGateway struct {
	collection map[string][]entity.Document
	filters    []string
	err        error
}

func (g *stubGateway) Fetch(_ context.Context, resource, filter, _ string) ([]entity.Document, error) {
	g.filters = append(g.filters, filter)
	if g.err != nil {
		return nil, g.err
	}
	return g.collection[resource], nil
}

func (g *stubGateway) Get(context.Context, string) (entity.Document, error) {
	return nil, domain.ErrTransientAPI
}

func newGateway() *stubGateway {
	return &stubGateway{collection: map[string][]entity.Document{
		"retaildemand": {
			{"id": "r-1", "name": "00001", "positions": map[string]any{"rows": []any{
				map[string]any{"assortment": map[string]any{"name": "Крем"}, "price": 0, "quantity": 1},
			}}},
		},
	}}
}

func buildRoot(t *testing.T, gw *stubGateway) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	svc := check.NewService(
		[]*check.UseCase{check.NewUseCase(entity.RegionRB, gw, zerolog.Nop())},
		zerolog.Nop(),
		check.WithRepository(memory.NewCheckRunRepository()),
	)
	root := cli.NewRootCmd(cli.Deps{
		Service:       func() (*check.Service, error) { return svc, nil },
		JWT:           config.JWTConfig{Secret: testSecret, Expiration: 60, Issuer: "test"},
		DefaultRegion: "RB",
		Now:           func() time.Time { return time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) },
	})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	return root, buf
}

func TestRootCmd_Subcommands(t *testing.T) {
	root, _ := buildRoot(t, newGateway())
	assert.Equal(t, "audit", root.Use)

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"check", "check-all", "runs", "token"} {
		assert.True(t, names[want], "falta el subcomando %s", want)
	}
}

func TestCheckCmd_PrintsSummary(t *testing.T) {
	gw := newGateway()
	root, buf := buildRoot(t, gw)
	root.SetArgs([]string{"check", "sales", "--from", "2024-03-01", "--verbose"})

	require.NoError(t, root.Execute())
	out := buf.String()
	assert.Contains(t, out, "01.03.2024 - 01.03.2024")
	assert.Contains(t, out, "всего 1")
	assert.Contains(t, out, "с ошибками 1")
	assert.Contains(t, out, "00001")
	require.Len(t, gw.filters, 1)
	assert.Equal(t, "created>=2024-03-01 00:00:00;created<=2024-03-01 23:59:59", gw.filters[0])
}

func TestCheckCmd_DefaultsToYesterday(t *testing.T) {
	gw := newGateway()
	root, _ := buildRoot(t, gw)
	root.SetArgs([]string{"check", "sales"})

	require.NoError(t, root.Execute())
	require.Len(t, gw.filters, 1)
	assert.Equal(t, "created>=2024-03-05 00:00:00;created<=2024-03-05 23:59:59", gw.filters[0])
}

func TestCheckCmd_JSON(t *testing.T) {
	root, buf := buildRoot(t, newGateway())
	root.SetArgs([]string{"check", "sales", "--from", "2024-03-01", "--json"})

	require.NoError(t, root.Execute())
	var run dto.CheckRunResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &run))
	assert.Equal(t, "sales", run.DocumentType)
	assert.Equal(t, 1, run.Report.Total)
}

func TestCheckCmd_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"unknown type", []string{"check", "orders"}},
		{"unknown region", []string{"check", "sales", "--region", "UA"}},
		{"bad date", []string{"check", "sales", "--from", "01.03.2024"}},
		{"missing type", []string{"check"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root, _ := buildRoot(t, newGateway())
			root.SetArgs(tc.args)
			assert.Error(t, root.Execute())
		})
	}
}

func TestCheckCmd_FailedRunExitsWithError(t *testing.T) {
	gw := newGateway()
	gw.err = domain.ErrTransientAPI
	root, buf := buildRoot(t, gw)
	root.SetArgs([]string{"check", "sales", "--from", "2024-03-01"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cli.ErrRunFailed))
	assert.Contains(t, buf.String(), "❌")
}

func TestCheckAllCmd(t *testing.T) {
	root, buf := buildRoot(t, newGateway())
	root.SetArgs([]string{"check-all", "--from", "2024-03-01"})

	require.NoError(t, root.Execute())
	out := buf.String()
	for _, typ := range entity.DocumentTypes() {
		assert.Contains(t, out, typ.Label())
	}
}

func TestRunsCmd(t *testing.T) {
	root, buf := buildRoot(t, newGateway())
	root.SetArgs([]string{"runs"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Проверок нет.")

	root.SetArgs([]string{"check", "sales", "--from", "2024-03-01"})
	require.NoError(t, root.Execute())
	buf.Reset()

	root.SetArgs([]string{"runs", "--type", "sales", "--region", "RB"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "2024-03-01..2024-03-01")
	assert.Contains(t, buf.String(), "с ошибками 1")
}

func TestTokenCmd(t *testing.T) {
	root, buf := buildRoot(t, newGateway())
	root.SetArgs([]string{"token", "--role", "admin", "--subject", "ops"})
	require.NoError(t, root.Execute())

	subject, role, err := jwt.Parse(testSecret, string(bytes.TrimSpace(buf.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "ops", subject)
	assert.Equal(t, jwt.RoleAdmin, role)
}

func TestTokenCmd_RejectsUnknownRole(t *testing.T) {
	root, _ := buildRoot(t, newGateway())
	root.SetArgs([]string{"token", "--role", "root"})
	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
