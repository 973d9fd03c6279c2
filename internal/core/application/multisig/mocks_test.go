package multisig_test

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

// **** Notifier ****

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Publish(ctx context.Context, event ports.Event) error {
	args := m.Called(event.Topic)
	return args.Error(0)
}

// **** MultisigService ****

// mockMultisig delegates to the wrapped service unless an expectation is set
// for the method.
type mockMultisig struct {
	mock.Mock
	ports.MultisigService
}

func (m *mockMultisig) ConfirmTransaction(
	ctx context.Context, hash common.Hash, signer common.Address, sig []byte,
) error {
	args := m.Called(hash, signer)
	return args.Error(0)
}

func (m *mockMultisig) RejectTransaction(
	ctx context.Context, hash common.Hash, reason string,
) error {
	m.Called(hash)
	return m.MultisigService.RejectTransaction(ctx, hash, reason)
}

// **** Signer ****

type brokenSigner struct {
	ports.Signer
}

// SignHash returns a signature made by a key other than the signer's.
func (s brokenSigner) SignHash(
	ctx context.Context, hash common.Hash,
) ([]byte, error) {
	sig, err := s.Signer.SignHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	sig[10] ^= 0xff
	return sig, nil
}

// interleavingMultisig runs beforeConfirm ahead of every confirmation, to
// simulate an owner confirming in between the read and the write of
// another one.
type interleavingMultisig struct {
	ports.MultisigService
	beforeConfirm func()
}

func (m *interleavingMultisig) ConfirmTransaction(
	ctx context.Context, hash common.Hash, signer common.Address, sig []byte,
) error {
	if m.beforeConfirm != nil {
		m.beforeConfirm()
		m.beforeConfirm = nil
	}
	return m.MultisigService.ConfirmTransaction(ctx, hash, signer, sig)
}
