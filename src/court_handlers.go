package main

import (
	"arena/src/apperror"
	"arena/src/models"
	"arena/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

// courtAdminHandlers registers court and staff management, admin only.
func courtAdminHandlers(g *gin.RouterGroup, d *handlerDeps) *gin.RouterGroup {
	g.
		POST("/courts", func(ctx *gin.Context) {
			var body types.CreateCourtRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			court := models.Court{Name: body.Name, Slug: slug.Make(body.Name), IsActive: true}
			if err := d.db.WithContext(ctx).Create(&court).Error; err != nil {
				if apperror.Is(err, apperror.KindConflict) {
					ctx.JSON(http.StatusConflict, gin.H{"error": "a court with this name already exists"})
					return
				}
				log.Printf("Error creating court: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": court})
		}).
		POST("/staff", func(ctx *gin.Context) {
			var body types.CreateStaffRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			staff := models.Staff{Name: body.Name, Role: body.Role, IsActive: true}
			if err := d.db.WithContext(ctx).Create(&staff).Error; err != nil {
				log.Printf("Error creating staff: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": staff})
		})
	return g
}

func courtHandlers(g *gin.RouterGroup, d *handlerDeps) *gin.RouterGroup {
	g.
		GET("/courts", func(ctx *gin.Context) {
			var courts []models.Court
			if err := d.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&courts).Error; err != nil {
				log.Printf("Error listing courts: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": courts, "count": len(courts)})
		}).
		GET("/staff", func(ctx *gin.Context) {
			tx := d.db.WithContext(ctx).Where("is_active = ?", true)
			if role := ctx.Query("role"); role != "" {
				tx = tx.Where("role = ?", role)
			}
			var staff []models.Staff
			if err := tx.Order("name").Find(&staff).Error; err != nil {
				log.Printf("Error listing staff: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": staff, "count": len(staff)})
		})
	return g
}
