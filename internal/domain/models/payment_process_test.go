package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReferenceID(t *testing.T) {
	first := NewReferenceID(ProviderDummy, "mid_01")
	second := NewReferenceID(ProviderDummy, "mid_01")

	require.True(t, strings.HasPrefix(first, "DUMMY_mid_01_"))
	require.NotEqual(t, first, second)
}

func TestFailureReason(t *testing.T) {
	tCases := []struct {
		name    string
		process PaymentProcess
		want    string
	}{
		{name: "message", process: PaymentProcess{Message: StringPtr("card declined"), Code: StringPtr("9999")}, want: "card declined"},
		{name: "code", process: PaymentProcess{Code: StringPtr("9999")}, want: "9999"},
		{name: "empty_message_falls_to_code", process: PaymentProcess{Message: StringPtr(""), Code: StringPtr("1001")}, want: "1001"},
		{name: "nothing", process: PaymentProcess{}, want: "Unknown error"},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			require.Equal(t, tCase.want, tCase.process.FailureReason())
		})
	}
}

func TestStatus(t *testing.T) {
	require.True(t, StatusUnknown.IsActive())
	require.True(t, StatusPending.IsActive())
	require.True(t, StatusSuccess.IsTerminal())
	require.True(t, StatusFailed.IsTerminal())
	require.True(t, StatusCancelled.IsTerminal())
}

func TestAggregateID(t *testing.T) {
	p := PaymentProcess{ReferenceID: "DUMMY_mid_X"}
	require.Equal(t, "DUMMY_mid_X", p.AggregateID())

	p.OrderID = StringPtr("order-1")
	require.Equal(t, "order-1", p.AggregateID())
}

func TestApplyOutcome(t *testing.T) {
	p := PaymentProcess{PgTransactionID: StringPtr("tid-1")}

	p.ApplyOutcome(Outcome{Code: "0000", Message: "approved", ApprovalCode: "A1", RawPayload: `{"tid":"tid-1"}`})

	require.Equal(t, "tid-1", Deref(p.PgTransactionID))
	require.Equal(t, "A1", Deref(p.ApprovalCode))
	require.Equal(t, "0000", Deref(p.Code))
	require.Equal(t, `{"tid":"tid-1"}`, Deref(p.ResponsePayload))
}
