package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/kinterstore/qrishub.go/lib/tokens"
	"github.com/labstack/echo/v4"
)

type TransactionStreamController struct {
	svc *service.QrishubService
}

type TransactionEventWrapper struct {
	Type  string                    `json:"type"`
	Event *service.TransactionEvent `json:"event,omitempty"`
}

func NewTransactionStreamController(svc *service.QrishubService) *TransactionStreamController {
	return &TransactionStreamController{svc: svc}
}

// StreamTransactions pushes every update of the caller's transactions over a websocket
func (controller *TransactionStreamController) StreamTransactions(c echo.Context) error {
	userId, err := tokens.ParseToken(controller.svc.Config.JWTSecret, c.QueryParam("token"))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	transactionChan := make(chan models.Transaction, service.SubscriberBufferSize)
	subId, err := controller.svc.TransactionPubSub.Subscribe(userId, transactionChan)
	if err != nil {
		return err
	}
	upgrader := websocket.Upgrader{}
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		controller.svc.TransactionPubSub.Unsubscribe(subId, userId)
		return err
	}
	defer ws.Close()

	//start listening for close messages
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, _, err := ws.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	//start with keepalive message
	err = ws.WriteJSON(&TransactionEventWrapper{Type: "keepalive"})
	if err != nil {
		controller.svc.Logger.Error(err)
		controller.svc.TransactionPubSub.Unsubscribe(subId, userId)
		return err
	}
SocketLoop:
	for {
		select {
		case <-done:
			break SocketLoop
		case <-ticker.C:
			err := ws.WriteJSON(&TransactionEventWrapper{Type: "keepalive"})
			if err != nil {
				controller.svc.Logger.Error(err)
				break SocketLoop
			}
		case t := <-transactionChan:
			event := service.NewTransactionEvent(t)
			err := ws.WriteJSON(&TransactionEventWrapper{Type: "transaction", Event: &event})
			if err != nil {
				controller.svc.Logger.Error(err)
				break SocketLoop
			}
		}
	}
	return controller.svc.TransactionPubSub.Unsubscribe(subId, userId)
}
