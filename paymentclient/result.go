package paymentclient

import (
	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
)

// Result is what every controller operation returns. Failures never come
// with a made up transaction.
type Result struct {
	Success     bool
	Status      common.PaymentStatus
	Changed     bool
	Transaction *models.Transaction
	Error       *Error
	Message     string
}

func (r Result) Display() common.StatusDisplay {
	return common.FormatStatus(r.Status)
}

func success(status common.PaymentStatus, changed bool, t *models.Transaction) Result {
	return Result{
		Success:     true,
		Status:      status,
		Changed:     changed,
		Transaction: t,
		Message:     common.FormatStatus(status).Label,
	}
}

func failure(status common.PaymentStatus, err error) Result {
	e := asError(err)
	return Result{
		Status:  status,
		Error:   e,
		Message: e.Message,
	}
}
