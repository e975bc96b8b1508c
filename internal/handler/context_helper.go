package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/groove-academy/groove-api/internal/middleware"
	"github.com/groove-academy/groove-api/internal/models"
)

func actorFromContext(c *gin.Context) (models.Actor, bool) {
	return middleware.CurrentActor(c)
}
