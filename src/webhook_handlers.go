package main

import (
	"arena/src/apperror"
	"arena/src/lib"
	"arena/src/types"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// applyCallback runs fn at most once per key. The claim is released when fn
// fails for a reason the sender can retry.
func applyCallback(ctx *gin.Context, d *handlerDeps, key string, fn func(c context.Context) error) {
	first, err := d.idem.Claim(ctx, key)
	if err != nil {
		log.Printf("[webhook] Error claiming %s: %s\n", key, err.Error())
		ctx.Status(http.StatusServiceUnavailable)
		return
	}
	if !first {
		ctx.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}
	if err := fn(ctx); err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindInternal, apperror.KindExternal:
			d.idem.Release(ctx, key)
			log.Printf("[webhook] Error applying %s: %s\n", key, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": apperror.Message(err)})
		default:
			log.Printf("[webhook] Ignored %s: %s\n", key, err.Error())
			ctx.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": apperror.Message(err)})
		}
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func webhookHandlers(g *gin.RouterGroup, d *handlerDeps) *gin.RouterGroup {
	g.
		POST("/webhooks/xendit", func(ctx *gin.Context) {
			token := ctx.GetHeader("x-callback-token")
			expected := d.cfg.XenditCallbackToken
			if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				ctx.Status(http.StatusUnauthorized)
				return
			}
			payload, err := io.ReadAll(ctx.Request.Body)
			if err != nil {
				log.Printf("Error reading request body: %s\n", err.Error())
				ctx.Status(http.StatusServiceUnavailable)
				return
			}
			cb, err := lib.ParseXenditCallback(payload)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Printf("[XenditEvent] %s %s %s\n", cb.Event, cb.ReferenceID, cb.Status)
			switch {
			case cb.Succeeded():
				applyCallback(ctx, d, cb.IdempotencyKey(), func(c context.Context) error {
					_, err := d.checkout.ConfirmPayment(c, cb.ReferenceID, cb.ExternalID)
					return err
				})
			case cb.Expired():
				applyCallback(ctx, d, cb.IdempotencyKey(), func(c context.Context) error {
					return d.checkout.ExpirePayment(c, cb.ReferenceID, types.PAYMENT_EXPIRED)
				})
			case cb.Failed():
				applyCallback(ctx, d, cb.IdempotencyKey(), func(c context.Context) error {
					return d.checkout.ExpirePayment(c, cb.ReferenceID, types.PAYMENT_FAILED)
				})
			default:
				ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
			}
		}).
		POST("/webhooks/stripe", func(ctx *gin.Context) {
			payload, err := io.ReadAll(ctx.Request.Body)
			if err != nil {
				log.Printf("Error reading request body: %s\n", err.Error())
				ctx.Status(http.StatusServiceUnavailable)
				return
			}
			event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), d.cfg.StripeWebhookSecret)
			if err != nil {
				log.Printf("Error verifying webhook signature: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			log.Printf("[StripeEvent] %s\n", event.Type)
			switch event.Type {
			case "checkout.session.completed", "checkout.session.expired":
				var session stripe.CheckoutSession
				if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
					log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				if session.ClientReferenceID == "" {
					ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
					return
				}
				applyCallback(ctx, d, "stripe:"+event.ID, func(c context.Context) error {
					if event.Type == "checkout.session.completed" {
						_, err := d.checkout.ConfirmPayment(c, session.ClientReferenceID, session.ID)
						return err
					}
					return d.checkout.ExpirePayment(c, session.ClientReferenceID, types.PAYMENT_EXPIRED)
				})
			default:
				ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
			}
		})
	return g
}
