package message_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"adelaide/council/internal/message"
	"adelaide/council/internal/paxosnum"
)

func n(counter, member int) paxosnum.ProposalNum {
	return paxosnum.ProposalNum{Counter: counter, Member: member}
}

func TestRoundTrip_Prepare(t *testing.T) {
	m := message.Prepare("M4", n(1, 4))
	parsed, err := message.Parse(m.Serialize())
	require.NoError(t, err)
	require.Equal(t, m, parsed)
	require.Equal(t, "PREPARE|M4|1.4|||", m.Serialize())
}

func TestRoundTrip_PromiseWithNoPriorAccept(t *testing.T) {
	m := message.Promise("M2", n(1, 4), paxosnum.MinProposalNum, "")
	require.Equal(t, "PROMISE|M2|1.4||-1.-1|", m.Serialize())

	parsed, err := message.Parse(m.Serialize())
	require.NoError(t, err)
	require.Equal(t, m, parsed)
	require.True(t, parsed.HasAccN)
	require.False(t, parsed.HasAccV)
}

func TestRoundTrip_PromiseWithPriorAccept(t *testing.T) {
	m := message.Promise("M2", n(2, 4), n(1, 3), "M3")
	parsed, err := message.Parse(m.Serialize())
	require.NoError(t, err)
	require.Equal(t, m, parsed)
	require.True(t, parsed.HasAccN)
	require.True(t, parsed.HasAccV)
	require.Equal(t, "M3", parsed.AcceptedV)
}

func TestRoundTrip_AcceptRequestAndAccepted(t *testing.T) {
	ar := message.AcceptRequest("M4", n(1, 4), "M5")
	require.Equal(t, "ACCEPT_REQUEST|M4|1.4|M5||", ar.Serialize())
	parsed, err := message.Parse(ar.Serialize())
	require.NoError(t, err)
	require.Equal(t, ar, parsed)

	acc := message.Accepted("M7", n(1, 4), "M5")
	require.Equal(t, "ACCEPTED|M7|1.4|M5||", acc.Serialize())
}

func TestRoundTrip_DecideAckReject(t *testing.T) {
	d := message.Decide("M4", "M5")
	require.Equal(t, "DECIDE|M4||M5||", d.Serialize())

	ack := message.Ack("M7")
	require.Equal(t, "ACK|M7||||", ack.Serialize())

	rej := message.Reject("M5", n(2, 8), "promised=2.8")
	require.Equal(t, "REJECT|M5|2.8|promised=2.8||", rej.Serialize())
}

func TestParse_RejectsWrongFieldCount(t *testing.T) {
	_, err := message.Parse("PREPARE|M1|1.1|")
	require.ErrorIs(t, err, message.ErrMalformedFrame)
}

func TestParse_RejectsUnknownType(t *testing.T) {
	_, err := message.Parse("BOGUS|M1||||")
	require.ErrorIs(t, err, message.ErrMalformedFrame)
}

func TestParse_RejectsMalformedProposalNumber(t *testing.T) {
	_, err := message.Parse("PREPARE|M1|not-a-number|||")
	require.ErrorIs(t, err, message.ErrMalformedFrame)
}

func TestParse_EmptyFieldsAreAbsentNotEmptyString(t *testing.T) {
	m, err := message.Parse("ACK|M7||||")
	require.NoError(t, err)
	require.False(t, m.HasN)
	require.False(t, m.HasValue)
	require.False(t, m.HasAccN)
	require.False(t, m.HasAccV)
}
