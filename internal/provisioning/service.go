package provisioning

import (
	"context"
	"log/slog"
	"time"

	"github.com/teawithlucas/keycloak-provisioner/internal/keycloak"
)

// UserCreator submits a user to a realm and returns the status code the
// identity provider answered with. A non-nil error means no status code was
// obtained. *keycloak.AdminClient implements it.
type UserCreator interface {
	CreateUser(ctx context.Context, realm string, user keycloak.UserRepresentation) (int, error)
}

// Option configures a Service.
type Option func(s *Service)

// WithMetrics records every outcome on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service provisions users in a single realm.
type Service struct {
	creator UserCreator
	realm   string
	logger  *slog.Logger
	metrics *Metrics
}

// NewService returns a Service bound to realm.
func NewService(creator UserCreator, realm string, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		creator: creator,
		realm:   realm,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provision creates an enabled user with a permanent password in the
// service's realm.
func (s *Service) Provision(ctx context.Context, username, password string) Outcome {
	return s.ProvisionInRealm(ctx, s.realm, username, password)
}

// ProvisionInRealm creates the user in realm. It makes exactly one
// user-creation call and never retries.
func (s *Service) ProvisionInRealm(ctx context.Context, realm, username, password string) Outcome {
	start := time.Now()
	status, err := s.creator.CreateUser(ctx, realm, keycloak.NewUser(username, password))
	var outcome Outcome
	if err != nil {
		outcome = transportFailure(username, err)
	} else {
		outcome = Classify(username, status)
	}
	s.metrics.observe(outcome, time.Since(start))

	switch outcome.Kind {
	case Created:
		s.logger.Info("user created", "username", username, "realm", realm)
	case DuplicateUser:
		s.logger.Error("duplicate user", "username", username, "realm", realm)
	case CommunicationFailure:
		s.logger.Error("error creating user", "username", username, "realm", realm, "status", outcome.StatusCode)
	case TransportFailure:
		s.logger.Error("error creating user", "username", username, "realm", realm, "error", err)
	}
	return outcome
}
