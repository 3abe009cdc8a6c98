package flows

import (
	"errors"

	"github.com/MrEthical07/sellerhub/jwt"
)

// ValidateFailureKind classifies access-token failures. Expired is kept apart
// from Invalid for metrics even though both are rejected the same way.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureExpired
	ValidateFailureInvalid
)

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Verifier AccessVerifier
}

// ValidateResult returns either the verified claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// RunValidate verifies an access token. It never touches the session cache.
func RunValidate(token string, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}

	claims, err := deps.Verifier.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ValidateResult{Failure: ValidateFailureExpired, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureInvalid, Err: err}
	}

	return ValidateResult{Claims: claims}
}
