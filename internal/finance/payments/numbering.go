package payments

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// receiptNumber generates a receipt number of the form RCT-YYYYMMDD-XXXXXX.
// The suffix is random; the column's unique constraint is the real guarantee.
func receiptNumber(date time.Time) string {
	return numbered("RCT", date)
}

// transactionRef generates a ledger reference of the form TXN-YYYYMMDD-XXXXXX
func transactionRef(date time.Time) string {
	return numbered("TXN", date)
}

func numbered(prefix string, date time.Time) string {
	u := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(u[:3]))
	return fmt.Sprintf("%s-%s-%s", prefix, date.Format("20060102"), suffix)
}
