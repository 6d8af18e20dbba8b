package types

// X402Version is the x402 version enum.
type X402Version int

const (
	X402Version1 X402Version = 1
)

// Scheme is the scheme enum.
type Scheme string

const (
	SchemeExact Scheme = "exact"
)

// Network is the network enum.
type Network string

const (
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia"
)

// ChainID returns the numeric chain ID for the network, or 0 when the network
// is unknown.
func (n Network) ChainID() int64 {
	switch n {
	case NetworkBase:
		return 8453
	case NetworkBaseSepolia:
		return 84532
	default:
		return 0
	}
}

// SettlementState is the settlement state enum.
type SettlementState string

const (
	SettlementPending   SettlementState = "pending"
	SettlementSubmitted SettlementState = "submitted"
	SettlementConfirmed SettlementState = "confirmed"
	SettlementFailed    SettlementState = "failed"
)

// InvalidReason is the verification rejection reason enum.
type InvalidReason string

const (
	InvalidReasonInvalidX402Version                    InvalidReason = "invalid_x402_version"
	InvalidReasonInvalidScheme                         InvalidReason = "invalid_scheme"
	InvalidReasonInvalidNetwork                        InvalidReason = "invalid_network"
	InvalidReasonInvalidPaymentEnvelope                InvalidReason = "invalid_payment_envelope"
	InvalidReasonInvalidAuthorizationValidAfter        InvalidReason = "invalid_authorization_valid_after"
	InvalidReasonInvalidAuthorizationValidBefore       InvalidReason = "invalid_authorization_valid_before"
	InvalidReasonInvalidAuthorizationTimeWindow        InvalidReason = "invalid_authorization_time_window"
	InvalidReasonAuthorizationNotYetValid              InvalidReason = "authorization_not_yet_valid"
	InvalidReasonAuthorizationExpired                  InvalidReason = "authorization_expired"
	InvalidReasonInvalidAuthorizationValue             InvalidReason = "invalid_authorization_value"
	InvalidReasonInvalidAuthorizationValueNegative     InvalidReason = "invalid_authorization_value_negative"
	InvalidReasonAuthorizationAmountMismatch           InvalidReason = "authorization_amount_mismatch"
	InvalidReasonInvalidAuthorizationFromAddress       InvalidReason = "invalid_authorization_from_address"
	InvalidReasonInvalidAuthorizationToAddress         InvalidReason = "invalid_authorization_to_address"
	InvalidReasonInvalidAuthorizationToAddressMismatch InvalidReason = "invalid_authorization_to_address_mismatch"
	InvalidReasonInvalidAuthorizationNonce             InvalidReason = "invalid_authorization_nonce"
	InvalidReasonInvalidAuthorizationNonceLength       InvalidReason = "invalid_authorization_nonce_length"
	InvalidReasonAuthorizationNonceAlreadyUsed         InvalidReason = "authorization_nonce_already_used"
	InvalidReasonInvalidRequirementsAsset              InvalidReason = "invalid_requirements_asset"
	InvalidReasonInvalidRequirementsAmount             InvalidReason = "invalid_requirements_amount"
	InvalidReasonInvalidRequirementsExtraName          InvalidReason = "invalid_requirements_extra_name"
	InvalidReasonInvalidRequirementsExtraVersion       InvalidReason = "invalid_requirements_extra_version"
	InvalidReasonInvalidTypedDataDomain                InvalidReason = "invalid_typed_data_domain"
	InvalidReasonInvalidTypedDataMessage               InvalidReason = "invalid_typed_data_message"
	InvalidReasonInvalidAuthorizationSignature         InvalidReason = "invalid_authorization_signature"
	InvalidReasonInvalidAuthorizationSignatureLength   InvalidReason = "invalid_authorization_signature_length"
	InvalidReasonInvalidAuthorizationSignatureHash     InvalidReason = "invalid_authorization_signature_hash"
	InvalidReasonInvalidAuthorizationPubkey            InvalidReason = "invalid_authorization_pubkey"
	InvalidReasonInvalidAuthorizationPubkeyLength      InvalidReason = "invalid_authorization_pubkey_length"
	InvalidReasonInvalidAuthorizationSenderMismatch    InvalidReason = "invalid_authorization_sender_mismatch"
)

// ErrorReason is the settlement error reason enum.
type ErrorReason string

const (
	ErrorReasonInvalidAuthorizationValue           ErrorReason = "invalid_authorization_value"
	ErrorReasonInvalidAuthorizationNonce           ErrorReason = "invalid_authorization_nonce"
	ErrorReasonInvalidAuthorizationNonceLength     ErrorReason = "invalid_authorization_nonce_length"
	ErrorReasonInvalidAuthorizationSignature       ErrorReason = "invalid_authorization_signature"
	ErrorReasonInvalidAuthorizationSignatureLength ErrorReason = "invalid_authorization_signature_length"
	ErrorReasonInvalidAuthorizationMessage         ErrorReason = "invalid_authorization_message"
	ErrorReasonRelayUnreachable                    ErrorReason = "relay_unreachable"
	ErrorReasonSubmissionFailed                    ErrorReason = "submission_failed"
	ErrorReasonRetriesExhausted                    ErrorReason = "retries_exhausted"
)
