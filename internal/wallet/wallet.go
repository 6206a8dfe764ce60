// Package wallet provides the connected account and, when a secret is available, its signer.
package wallet

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"

	"govdash/internal/config"
	"govdash/internal/soroban"
)

// Wallet is a connected account. Signer is nil for watch-only wallets.
type Wallet interface {
	Address() string
	Signer() soroban.SignFunc
}

// Keypair signs locally with a full Stellar keypair.
type Keypair struct {
	kp *keypair.Full
}

func (k *Keypair) Address() string { return k.kp.Address() }

func (k *Keypair) Signer() soroban.SignFunc { return k.sign }

func (k *Keypair) sign(ctx context.Context, txXDR, passphrase string) (string, error) {
	parsed, err := txnbuild.TransactionFromXDR(txXDR)
	if err != nil {
		return "", errors.Wrap(err, "parse envelope")
	}
	tx, ok := parsed.Transaction()
	if !ok {
		return "", errors.New("fee bump envelopes are not supported")
	}
	signed, err := tx.Sign(passphrase, k.kp)
	if err != nil {
		return "", errors.Wrap(err, "sign envelope")
	}
	return signed.Base64()
}

// WatchOnly exposes an address without any signing capability.
type WatchOnly string

func (w WatchOnly) Address() string { return string(w) }

func (w WatchOnly) Signer() soroban.SignFunc { return nil }

// FromSecret parses an S... seed.
func FromSecret(secret string) (*Keypair, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return nil, errors.Wrap(err, "parse secret key")
	}
	return &Keypair{kp: kp}, nil
}

// LoadFromEnv reads STELLAR_SECRET_KEY, loading .env first when present.
func LoadFromEnv() (*Keypair, error) {
	_ = godotenv.Load() // best-effort
	secret := os.Getenv(config.EnvSecretKey)
	if secret == "" {
		return nil, errors.Errorf("%s not set", config.EnvSecretKey)
	}
	return FromSecret(secret)
}

// Resolve picks the wallet for this process: a signing keypair when the secret is set,
// a watch-only address when only an address is configured, or nil when neither is.
func Resolve(address string) (Wallet, error) {
	_ = godotenv.Load()
	if os.Getenv(config.EnvSecretKey) != "" {
		kp, err := LoadFromEnv()
		if err != nil {
			return nil, err
		}
		if address != "" && address != kp.Address() {
			return nil, errors.Errorf("configured wallet %s does not match secret key account %s", address, kp.Address())
		}
		return kp, nil
	}
	if address == "" {
		return nil, nil
	}
	if !strkey.IsValidEd25519PublicKey(address) {
		return nil, errors.Errorf("invalid wallet address %q", address)
	}
	return WatchOnly(address), nil
}
