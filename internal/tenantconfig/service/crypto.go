package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"

	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
	"gorm.io/datatypes"
)

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func (s *Service) encryptProviders(providers map[paymentdomain.Provider]paymentdomain.ProviderCredentials) (datatypes.JSON, error) {
	if len(s.encKey) == 0 {
		return nil, paymentdomain.ErrEncryptionKeyMissing
	}

	payload, err := json.Marshal(providers)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, payload, nil)
	encoded := encryptedPayload{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	}
	out, err := json.Marshal(encoded)
	if err != nil {
		return nil, err
	}

	return datatypes.JSON(out), nil
}

func (s *Service) decryptProviders(raw datatypes.JSON) (map[paymentdomain.Provider]paymentdomain.ProviderCredentials, error) {
	if len(s.encKey) == 0 {
		return nil, paymentdomain.ErrEncryptionKeyMissing
	}
	if len(raw) == 0 {
		return map[paymentdomain.Provider]paymentdomain.ProviderCredentials{}, nil
	}

	var encoded encryptedPayload
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}

	nonce, err := base64.RawStdEncoding.DecodeString(encoded.Nonce)
	if err != nil {
		return nil, err
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(encoded.Ciphertext)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errors.New("credential envelope corrupt")
	}

	payload, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	providers := map[paymentdomain.Provider]paymentdomain.ProviderCredentials{}
	if err := json.Unmarshal(payload, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}
