package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/follow-graph/internal/middleware"
	"github.com/anonto42/follow-graph/internal/services"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func getUserIDFromContext(c echo.Context) (primitive.ObjectID, bool) {
	return middleware.UserIDFromContext(c)
}

// serviceError maps follow service errors onto HTTP responses
func serviceError(c echo.Context, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "errors": verr.Messages})
	}

	return queryFailure(err)
}

// queryFailure logs the cause of a store failure and returns an opaque 500
func queryFailure(err error) error {
	var qerr *services.QueryError
	if errors.As(err, &qerr) {
		log.WithError(qerr.Err).WithField("op", qerr.Op).Error("follow store failure")
		return echo.NewHTTPError(http.StatusInternalServerError, qerr.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
