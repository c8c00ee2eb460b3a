package provisioning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teawithlucas/keycloak-provisioner/internal/keycloak"
)

type createCall struct {
	realm string
	user  keycloak.UserRepresentation
}

type fakeCreator struct {
	status int
	err    error
	calls  []createCall
}

func (f *fakeCreator) CreateUser(_ context.Context, realm string, user keycloak.UserRepresentation) (int, error) {
	f.calls = append(f.calls, createCall{realm: realm, user: user})
	return f.status, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvisionClassifiesStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		kind    Kind
		message string
	}{
		{name: "created", status: http.StatusCreated, kind: Created},
		{name: "conflict", status: http.StatusConflict, kind: DuplicateUser, message: "Duplicate user: testuser"},
		{name: "server error", status: http.StatusInternalServerError, kind: CommunicationFailure, message: "Error creating user: status code 500"},
		{name: "forbidden", status: http.StatusForbidden, kind: CommunicationFailure, message: "Error creating user: status code 403"},
		{name: "ok is not created", status: http.StatusOK, kind: CommunicationFailure, message: "Error creating user: status code 200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &fakeCreator{status: tt.status}
			svc := NewService(creator, "acme", discardLogger())

			outcome := svc.Provision(context.Background(), "testuser", "testpassword")
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Equal(t, tt.message, outcome.Message)
			assert.Equal(t, "testuser", outcome.Username)
			if tt.kind == CommunicationFailure {
				assert.Equal(t, tt.status, outcome.StatusCode)
			}
			assert.Equal(t, tt.kind != Created, outcome.Failed())
		})
	}
}

func TestProvisionTransportFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	creator := &fakeCreator{err: cause}
	svc := NewService(creator, "acme", discardLogger())

	outcome := svc.Provision(context.Background(), "testuser", "testpassword")
	assert.Equal(t, TransportFailure, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, cause)
	assert.Equal(t, "Error creating user", outcome.Message)
	assert.NotContains(t, outcome.Message, "connection refused")
	assert.Len(t, creator.calls, 1, "transport failures are not retried")
}

func TestProvisionSubmitsEnabledUserWithPermanentPassword(t *testing.T) {
	creator := &fakeCreator{status: http.StatusCreated}
	svc := NewService(creator, "acme", discardLogger())

	svc.Provision(context.Background(), "testuser", "testpassword")
	require.Len(t, creator.calls, 1)
	call := creator.calls[0]
	assert.Equal(t, "acme", call.realm)
	assert.Equal(t, keycloak.UserRepresentation{
		Username: "testuser",
		Enabled:  true,
		Credentials: []keycloak.CredentialRepresentation{
			{Type: "password", Value: "testpassword", Temporary: false},
		},
	}, call.user)
}

func TestProvisionInRealmOverridesRealm(t *testing.T) {
	creator := &fakeCreator{status: http.StatusCreated}
	svc := NewService(creator, "acme", discardLogger())

	svc.ProvisionInRealm(context.Background(), "other", "testuser", "testpassword")
	require.Len(t, creator.calls, 1)
	assert.Equal(t, "other", creator.calls[0].realm)
}

func TestProvisionRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	creator := &fakeCreator{status: http.StatusCreated}
	svc := NewService(creator, "acme", discardLogger(), WithMetrics(metrics))

	svc.Provision(context.Background(), "a", "p")
	creator.status = http.StatusConflict
	svc.Provision(context.Background(), "a", "p")
	svc.Provision(context.Background(), "a", "p")
	creator.err = errors.New("timeout")
	svc.Provision(context.Background(), "a", "p")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("duplicate_user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("transport_failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("communication_failure")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
