package checkout

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// paymentSignature reproduces ePayco's callback signature: the hex SHA-256
// of the caret-joined merchant id, merchant key, payment reference,
// transaction id, amount and currency, each in its exact wire form.
func paymentSignature(merchantID, merchantKey, ref, txID, amount, currency string) string {
	joined := strings.Join([]string{merchantID, merchantKey, ref, txID, amount, currency}, "^")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}
