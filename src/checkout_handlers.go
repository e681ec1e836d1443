package main

import (
	"arena/src/checkout"
	"arena/src/middlewares"
	"arena/src/pricing"
	"arena/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func availabilityHandlers(g *gin.RouterGroup, d *handlerDeps) *gin.RouterGroup {
	staffAt := func(t types.SlotType) gin.HandlerFunc {
		return func(ctx *gin.Context) {
			var query types.AvailableStaffQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			day, err := pricing.ParseLocalDate(query.Date, d.engine.Location())
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			staff, err := d.engine.AvailableStaffAt(ctx, t, day, *query.Hour)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": staff, "count": len(staff)})
		}
	}

	g.
		GET("/slots", func(ctx *gin.Context) {
			var query types.SlotQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			day, err := pricing.ParseLocalDate(query.Date, d.engine.Location())
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			slots, err := d.engine.Slots(ctx, pricing.SlotQuery{
				Type:       query.Type,
				Day:        day,
				ResourceID: query.ResourceID,
				Bookable:   true,
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": slots, "count": len(slots)})
		}).
		GET("/coaches/available", staffAt(types.SLOT_COACH)).
		GET("/ballboys/available", staffAt(types.SLOT_BALLBOY)).
		GET("/inventory/available", func(ctx *gin.Context) {
			items, err := d.checkout.AvailableInventory(ctx)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
		})
	return g
}

func checkoutHandlers(g *gin.RouterGroup, d *handlerDeps) *gin.RouterGroup {
	g.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.CheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			lines := make([]checkout.InventoryLine, 0, len(body.Inventories))
			for _, l := range body.Inventories {
				lines = append(lines, checkout.InventoryLine{InventoryID: l.InventoryID, Quantity: l.Quantity})
			}
			result, err := d.checkout.Checkout(ctx, checkout.CheckoutRequest{
				UserID:          ctx.GetUint("id"),
				BookingID:       body.BookingID,
				PaymentMethodID: body.PaymentMethodID,
				CourtSlotIDs:    body.CourtSlotIDs,
				CoachSlotIDs:    body.CoachSlotIDs,
				BallboySlotIDs:  body.BallboySlotIDs,
				Inventory:       lines,
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": result})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			booking, err := d.checkout.GetBooking(ctx, ctx.GetUint("id"), params.ID, middlewares.IsAdmin(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CancelBookingRequestBody
			if ctx.Request.ContentLength > 0 {
				if err := ctx.ShouldBindJSON(&body); err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
			}
			booking, err := d.checkout.CancelBooking(ctx, ctx.GetUint("id"), params.ID, body.Reason)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		})
	return g
}
