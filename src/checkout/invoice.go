package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newInvoiceNumber returns INV-YYYYMMDD-XXXXXXXX with the date on the local
// calendar. The same number is the payment reference sent to the gateway.
func newInvoiceNumber(now time.Time, loc *time.Location) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.In(loc).Format("20060102"), suffix)
}
