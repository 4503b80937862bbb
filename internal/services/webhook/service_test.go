package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type txRecorder struct {
	calls int
}

func (r *txRecorder) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

type driverFunc func(ctx context.Context, provider models.Provider, payload []byte) error

func (f driverFunc) HandleWebhook(ctx context.Context, provider models.Provider, payload []byte) error {
	return f(ctx, provider, payload)
}

type outcomes []string

func (o *outcomes) RecordEvent(_ context.Context, component, outcome string) {
	*o = append(*o, component+":"+outcome)
}

func TestHandle(t *testing.T) {
	tCases := []struct {
		name       string
		driverErr  error
		expOutcome string
	}{
		{name: "applied", expOutcome: "webhook:applied"},
		{name: "invalid_payload", driverErr: internalErrors.ErrInvalidWebhook, expOutcome: "webhook:rejected"},
		{name: "unknown_provider", driverErr: internalErrors.ErrUnknownProvider, expOutcome: "webhook:rejected"},
		{name: "storage_failure", driverErr: errors.New("connection reset"), expOutcome: "webhook:failed"},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			tx := &txRecorder{}
			var got outcomes

			svc := New(logger.Discard(), tx, driverFunc(func(_ context.Context, provider models.Provider, payload []byte) error {
				require.Equal(t, models.ProviderDummy, provider)
				require.Equal(t, `{"tid":"T"}`, string(payload))
				return tCase.driverErr
			}), &got)

			err := svc.Handle(context.Background(), models.ProviderDummy, []byte(`{"tid":"T"}`))
			if tCase.driverErr != nil {
				require.ErrorIs(t, err, tCase.driverErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, 1, tx.calls)
			require.Equal(t, outcomes{tCase.expOutcome}, got)
		})
	}
}
