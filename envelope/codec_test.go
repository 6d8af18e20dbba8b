package envelope

import (
	"encoding/base64"
	"errors"
	"reflect"
	"testing"

	"github.com/0xmeta/newsgate/types"
)

func validEnvelope() types.PaymentEnvelope {
	return types.PaymentEnvelope{
		X402Version: types.X402Version1,
		Scheme:      types.SchemeExact,
		Network:     types.NetworkBaseSepolia,
		Payload: types.Payload{
			Signature: "0x" + "11" + "22",
			Authorization: types.Authorization{
				From:        "0x7e5F4552091A69125d5DfCb7b8C2659029395Bdf",
				To:          "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF",
				Value:       "20000",
				ValidAfter:  "0",
				ValidBefore: "1999999999",
				Nonce:       "0x0000000000000000000000000000000000000000000000000000000000000001",
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env := validEnvelope()

	header, err := Encode(env)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := base64.StdEncoding.DecodeString(header); err != nil {
		t.Fatalf("header is not valid base64: %v", err)
	}

	decoded, err := Decode(header)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(env, decoded) {
		t.Errorf("round trip changed envelope:\nwant %+v\ngot  %+v", env, decoded)
	}
}

func TestDecodeRejections(t *testing.T) {
	encode := func(mutate func(*types.PaymentEnvelope)) string {
		env := validEnvelope()
		mutate(&env)
		header, err := Encode(env)
		if err != nil {
			t.Fatal(err)
		}
		return header
	}

	tests := []struct {
		name       string
		header     string
		wantReason types.InvalidReason
	}{
		{
			"not base64",
			"!!!not-base64!!!",
			types.InvalidReasonInvalidPaymentEnvelope,
		},
		{
			"not JSON",
			base64.StdEncoding.EncodeToString([]byte("not json")),
			types.InvalidReasonInvalidPaymentEnvelope,
		},
		{
			"unknown version",
			encode(func(e *types.PaymentEnvelope) { e.X402Version = 2 }),
			types.InvalidReasonInvalidX402Version,
		},
		{
			"unknown scheme",
			encode(func(e *types.PaymentEnvelope) { e.Scheme = "approximate" }),
			types.InvalidReasonInvalidScheme,
		},
		{
			"unknown network",
			encode(func(e *types.PaymentEnvelope) { e.Network = "dogecoin" }),
			types.InvalidReasonInvalidNetwork,
		},
		{
			"missing signature",
			encode(func(e *types.PaymentEnvelope) { e.Payload.Signature = "" }),
			types.InvalidReasonInvalidPaymentEnvelope,
		},
		{
			"missing nonce",
			encode(func(e *types.PaymentEnvelope) { e.Payload.Authorization.Nonce = "" }),
			types.InvalidReasonInvalidPaymentEnvelope,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.header)
			if err == nil {
				t.Fatal("expected decode error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %T", err)
			}
			if de.Reason != tc.wantReason {
				t.Errorf("expected reason %q, got %q", tc.wantReason, de.Reason)
			}
		})
	}
}
