package main

import (
	"arena/src/apperror"
	"arena/src/pricing"
	"arena/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type resourceResolver func(ctx *gin.Context, id uint, t types.SlotType) (pricing.Resource, error)

func pricingHandlers(g *gin.RouterGroup, d *handlerDeps) *gin.RouterGroup {
	courts := func(_ *gin.Context, id uint, _ types.SlotType) (pricing.Resource, error) {
		return pricing.Court(id), nil
	}
	staff := func(ctx *gin.Context, id uint, t types.SlotType) (pricing.Resource, error) {
		return d.engine.StaffResource(ctx, id, t)
	}
	for _, r := range []struct {
		prefix  string
		resolve resourceResolver
	}{
		{"/courts", courts},
		{"/staff", staff},
	} {
		g.
			POST(r.prefix+"/:id/pricing/range", rangePricingHandler(d, r.resolve)).
			PUT(r.prefix+"/:id/pricing/day", dayPricingHandler(d, r.resolve)).
			PUT(r.prefix+"/:id/pricing/hour", hourPricingHandler(d, r.resolve))
	}

	g.GET("/courts/:id/cost-schedule", func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day, err := pricing.ParseLocalDate(ctx.Query("date"), d.engine.Location())
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		rows, err := d.engine.CostSchedule(ctx, params.ID, day)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
	})
	return g
}

func rangePricingHandler(d *handlerDeps, resolve resourceResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var body types.RangePricingRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := resolve(ctx, params.ID, body.Type)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		loc := d.engine.Location()
		from, err := pricing.ParseLocalDate(body.FromDate, loc)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		to, err := pricing.ParseLocalDate(body.ToDate, loc)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		result, err := d.engine.GenerateSlots(ctx, res, pricing.RangeRequest{
			From:       from,
			To:         to,
			DaysOfWeek: body.DaysOfWeek,
			Plan:       pricing.PricePlan{HappyPrice: body.HappyPrice, PeakPrice: body.PeakPrice, ClosedHours: body.ClosedHours},
		})
		if err != nil {
			// Days committed before the failure stay written.
			if result != nil && result.DaysProcessed > 0 {
				ctx.JSON(apperror.StatusOf(err), gin.H{"error": apperror.Message(err), "data": result})
				return
			}
			abortWithError(ctx, err)
			return
		}
		log.Printf("[pricing] %s range %s..%s: %d days, %d created, %d deleted, %d reserved kept\n",
			res, body.FromDate, body.ToDate, result.DaysProcessed, result.Created, result.Deleted, result.SkippedReserved)
		ctx.JSON(http.StatusCreated, gin.H{"data": result})
	}
}

func dayPricingHandler(d *handlerDeps, resolve resourceResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var body types.DayPricingRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := resolve(ctx, params.ID, body.Type)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		day, err := pricing.ParseLocalDate(body.Date, d.engine.Location())
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		result, err := d.engine.ReconcileDayPricing(ctx, res, day, pricing.PricePlan{
			HappyPrice:  body.HappyPrice,
			PeakPrice:   body.PeakPrice,
			ClosedHours: body.ClosedHours,
		})
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func hourPricingHandler(d *handlerDeps, resolve resourceResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var body types.HourPricingRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := resolve(ctx, params.ID, body.Type)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		day, err := pricing.ParseLocalDate(body.Date, d.engine.Location())
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		result, err := d.engine.OverrideHourPrice(ctx, res, day, *body.Hour, body.Price)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": result})
	}
}
