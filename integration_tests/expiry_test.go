package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/stretchr/testify/suite"
)

type ExpiryTestSuite struct {
	TestSuite
	user *models.User
}

func (suite *ExpiryTestSuite) SetupSuite() {
	suite.setup(nil)
}

func (suite *ExpiryTestSuite) SetupTest() {
	suite.resetData()
	suite.user, _ = suite.createUser("tono", "")
}

func (suite *ExpiryTestSuite) createOverdue() *models.Transaction {
	ctx := context.Background()
	t, _, err := suite.Service.CreateTransaction(ctx, suite.user.ID, &service.CreateTransactionRequest{PlanID: suite.plan.ID})
	suite.Require().NoError(err)
	_, err = suite.Service.DB.NewUpdate().Model((*models.Transaction)(nil)).
		Set("expired_at = ?", time.Now().Add(-time.Hour)).
		Where("id = ?", t.ID).
		Exec(ctx)
	suite.Require().NoError(err)
	return t
}

func (suite *ExpiryTestSuite) TestSweepExpiresOverduePayments() {
	overdue := suite.createOverdue()
	current, _, err := suite.Service.CreateTransaction(context.Background(), suite.user.ID, &service.CreateTransactionRequest{PlanID: suite.plan.ID})
	suite.Require().NoError(err)

	events := make(chan models.Transaction, 4)
	subId, err := suite.Service.TransactionPubSub.Subscribe(suite.user.ID, events)
	suite.Require().NoError(err)
	defer suite.Service.TransactionPubSub.Unsubscribe(subId, suite.user.ID)

	n, err := suite.Service.ExpireOverdueTransactions(context.Background())
	suite.Require().NoError(err)
	suite.Equal(1, n)

	select {
	case event := <-events:
		suite.Equal(overdue.Reference, event.Reference)
		suite.Equal(common.TransactionStatusExpired, event.Status)
	case <-time.After(time.Second):
		suite.Fail("no expiry event published")
	}

	t, err := suite.Service.FindTransactionByReference(context.Background(), current.Reference)
	suite.Require().NoError(err)
	suite.Equal(common.TransactionStatusUnpaid, t.Status)

	// a second sweep finds nothing
	n, err = suite.Service.ExpireOverdueTransactions(context.Background())
	suite.Require().NoError(err)
	suite.Equal(0, n)
}

func (suite *ExpiryTestSuite) TestExpiredPaymentCannotBeApproved() {
	overdue := suite.createOverdue()
	_, err := suite.Service.ExpireOverdueTransactions(context.Background())
	suite.Require().NoError(err)

	_, err = suite.Service.VerifyTransaction(context.Background(), 1, overdue.ID, common.VerifyActionApprove, "")
	suite.ErrorIs(err, service.ErrTransactionFinalized)
}

func (suite *ExpiryTestSuite) TestExpireSubscriptions() {
	ctx := context.Background()
	_, err := suite.Service.DB.NewInsert().Model(&models.Subscription{
		UserID:   suite.user.ID,
		PlanID:   suite.plan.ID,
		Status:   common.SubscriptionStatusActive,
		StartsAt: time.Now().Add(-31 * 24 * time.Hour),
		EndsAt:   time.Now().Add(-24 * time.Hour),
	}).Exec(ctx)
	suite.Require().NoError(err)

	n, err := suite.Service.ExpireSubscriptions(ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(1), n)
	sub, err := suite.Service.ActiveSubscription(ctx, suite.user.ID)
	suite.Require().NoError(err)
	suite.Nil(sub)
}

func TestExpiryTestSuite(t *testing.T) {
	suite.Run(t, new(ExpiryTestSuite))
}
