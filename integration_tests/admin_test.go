package integration_tests

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/controllers"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/stretchr/testify/suite"
)

type AdminTestSuite struct {
	TestSuite
	userToken  string
	userID     int64
	adminToken string
}

func (suite *AdminTestSuite) SetupSuite() {
	suite.setup(nil)
}

func (suite *AdminTestSuite) SetupTest() {
	suite.resetData()
	user, token := suite.createUser("budi", "")
	suite.userID, suite.userToken = user.ID, token
	_, suite.adminToken = suite.createUser("operator", common.RoleAdmin)
}

func (suite *AdminTestSuite) pendingPayment() *controllers.PaymentResponseBody {
	payment := &controllers.PaymentResponseBody{}
	suite.decode(suite.do(http.MethodPost, "/api/qris-payment", suite.userToken,
		&service.CreateTransactionRequest{PlanID: suite.plan.ID}), http.StatusCreated, payment)
	return payment
}

func (suite *AdminTestSuite) verify(id int64, action string, code int) *controllers.VerifyResponseBody {
	resp := &controllers.VerifyResponseBody{}
	rec := suite.do(http.MethodPost, "/api/subscriptions/verify", suite.adminToken, &controllers.VerifyRequestBody{
		ID:     id,
		Action: action,
		Note:   "checked bank statement",
	})
	if code != http.StatusOK {
		suite.Equal(code, rec.Code, rec.Body.String())
		return nil
	}
	suite.decode(rec, code, resp)
	return resp
}

func (suite *AdminTestSuite) TestApproveActivatesSubscription() {
	payment := suite.pendingPayment()

	resp := suite.verify(payment.ID, common.VerifyActionApprove, http.StatusOK)
	suite.True(resp.Ok)
	suite.Equal(common.TransactionStatusPaid, resp.Transaction.Status)
	suite.False(resp.Transaction.PaidAt.IsZero())

	sub, err := suite.Service.ActiveSubscription(context.Background(), suite.userID)
	suite.Require().NoError(err)
	suite.Require().NotNil(sub)
	suite.Equal(payment.ID, sub.TransactionID)
	suite.WithinDuration(time.Now().Add(30*24*time.Hour), sub.EndsAt, time.Minute)

	rec := suite.do(http.MethodGet, "/api/connection/status", suite.userToken, nil)
	suite.Equal(http.StatusOK, rec.Code)

	// a second decision is refused
	suite.verify(payment.ID, common.VerifyActionReject, http.StatusConflict)
}

func (suite *AdminTestSuite) TestRenewalExtendsSubscription() {
	first := suite.pendingPayment()
	suite.verify(first.ID, common.VerifyActionApprove, http.StatusOK)
	second := suite.pendingPayment()
	suite.verify(second.ID, common.VerifyActionApprove, http.StatusOK)

	sub, err := suite.Service.ActiveSubscription(context.Background(), suite.userID)
	suite.Require().NoError(err)
	suite.WithinDuration(time.Now().Add(60*24*time.Hour), sub.EndsAt, time.Minute)
}

func (suite *AdminTestSuite) TestReject() {
	payment := suite.pendingPayment()
	resp := suite.verify(payment.ID, common.VerifyActionReject, http.StatusOK)
	suite.Equal(common.TransactionStatusFailed, resp.Transaction.Status)
	suite.Equal(common.FailureReasonRejected, resp.Transaction.FailureReason)
	suite.Equal("REJECTED", resp.Transaction.Display.Code)

	sub, err := suite.Service.ActiveSubscription(context.Background(), suite.userID)
	suite.Require().NoError(err)
	suite.Nil(sub)
}

func (suite *AdminTestSuite) TestConcurrentDecisionsHaveOneWinner() {
	payment := suite.pendingPayment()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, action := range []string{common.VerifyActionApprove, common.VerifyActionReject} {
		wg.Add(1)
		go func(i int, action string) {
			defer wg.Done()
			_, results[i] = suite.Service.VerifyTransaction(context.Background(), 1, payment.ID, action, "")
		}(i, action)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			suite.ErrorIs(err, service.ErrTransactionFinalized)
			failures++
		}
	}
	suite.Equal(1, failures)
}

func (suite *AdminTestSuite) TestPendingAndListings() {
	first := suite.pendingPayment()
	suite.pendingPayment()
	suite.verify(first.ID, common.VerifyActionReject, http.StatusOK)

	pending := []controllers.PaymentResponseBody{}
	suite.decode(suite.do(http.MethodGet, "/api/pending", suite.adminToken, nil), http.StatusOK, &pending)
	suite.Len(pending, 1)

	list := &controllers.PaymentListResponseBody{}
	suite.decode(suite.do(http.MethodGet, "/api/admin/qris-payments?status=FAILED", suite.adminToken, nil), http.StatusOK, list)
	suite.Equal(1, list.Total)
	suite.Equal(first.Reference, list.Transactions[0].Reference)

	detail := &controllers.PaymentResponseBody{}
	suite.decode(suite.do(http.MethodGet, "/api/admin/qris-payments/"+strconv.FormatInt(first.ID, 10), suite.adminToken, nil), http.StatusOK, detail)
	suite.Equal(first.Reference, detail.Reference)
}

func (suite *AdminTestSuite) TestAdminRoutesNeedAdminRole() {
	payment := suite.pendingPayment()
	rec := suite.do(http.MethodPost, "/api/subscriptions/verify", suite.userToken, &controllers.VerifyRequestBody{
		ID:     payment.ID,
		Action: common.VerifyActionApprove,
	})
	suite.Equal(http.StatusForbidden, rec.Code)
	suite.Equal(http.StatusForbidden, suite.do(http.MethodGet, "/api/pending", suite.userToken, nil).Code)
}

func (suite *AdminTestSuite) TestDeleteUser() {
	rec := suite.do(http.MethodDelete, "/api/admin/users/"+strconv.FormatInt(suite.userID, 10), suite.adminToken, nil)
	suite.Equal(http.StatusNoContent, rec.Code)
	suite.Equal(http.StatusUnauthorized, suite.do(http.MethodGet, "/api/user/profile", suite.userToken, nil).Code)
}

func (suite *AdminTestSuite) TestCreatePlan() {
	plan := &struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}{}
	suite.decode(suite.do(http.MethodPost, "/api/admin/plans", suite.adminToken, map[string]interface{}{
		"name":          "Yearly",
		"price":         "1000000.00",
		"duration_days": 365,
		"active":        true,
	}), http.StatusOK, plan)
	suite.Equal("Yearly", plan.Name)

	plans, err := suite.Service.Plans(context.Background())
	suite.Require().NoError(err)
	suite.Len(plans, 2)
}

func TestAdminTestSuite(t *testing.T) {
	suite.Run(t, new(AdminTestSuite))
}
