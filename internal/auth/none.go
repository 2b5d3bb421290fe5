package auth

// NoneVerifier accepts every candidate. It exists for kiosk setups and
// for exercising the lock without a credential.
type NoneVerifier struct{}

// Name implements Verifier.
func (NoneVerifier) Name() string { return "none" }

// Init implements Verifier. Options are ignored.
func (NoneVerifier) Init(string) error { return nil }

// Verify implements Verifier.
func (NoneVerifier) Verify([]byte) bool { return true }

// Release implements Verifier.
func (NoneVerifier) Release() {}
