package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/socialfeed/internal/middleware"
	"github.com/anonto42/nano-midea/socialfeed/internal/services"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorBody is the error half of the response envelope
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is rendered for every failed request
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

var kindStatus = map[services.ErrorKind]int{
	services.KindInvalidOperation: http.StatusBadRequest,
	services.KindNotFound:         http.StatusNotFound,
	services.KindAlreadyLiked:     http.StatusBadRequest,
	services.KindNotLiked:         http.StatusBadRequest,
	services.KindUnauthenticated:  http.StatusUnauthorized,
	services.KindForbidden:        http.StatusForbidden,
	services.KindConflict:         http.StatusConflict,
	services.KindInternal:         http.StatusInternalServerError,
}

var statusCode = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthenticated",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not_found",
	http.StatusMethodNotAllowed:    "method_not_allowed",
	http.StatusConflict:            "conflict",
	http.StatusInternalServerError: "internal",
}

// HTTPErrorHandler renders service, validation and echo errors as the JSON
// error envelope. Internal failures are logged and hidden from the client.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Success: false, Error: body})
	}
	if writeErr != nil {
		logger.Get().Warn("write error response failed", zap.Error(writeErr))
	}
}

func classify(err error) (int, ErrorBody) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status, ok := kindStatus[svcErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		message := svcErr.Message
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
		return status, ErrorBody{Code: string(svcErr.Kind), Message: message}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, ErrorBody{Code: string(services.KindInvalidOperation), Message: validationErrs.Error()}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message, ok := httpErr.Message.(string)
		if !ok {
			message = http.StatusText(httpErr.Code)
		}
		code, ok := statusCode[httpErr.Code]
		if !ok {
			code = strconv.Itoa(httpErr.Code)
		}
		return httpErr.Code, ErrorBody{Code: code, Message: message}
	}

	return http.StatusInternalServerError, ErrorBody{Code: string(services.KindInternal), Message: "internal server error"}
}

// currentUserID returns the authenticated user id or an unauthenticated error
func currentUserID(c echo.Context) (uint, error) {
	id := middleware.UserID(c)
	if id == 0 {
		return 0, services.ErrUnauthenticated("user not authenticated")
	}
	return id, nil
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, services.ErrInvalidOperation("invalid " + name)
	}
	return uint(id), nil
}

// parsePage reads ?page=, defaulting to 1 when absent
func parsePage(c echo.Context) (int, error) {
	raw := c.QueryParam("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, services.ErrInvalidOperation("page must be a positive integer")
	}
	return page, nil
}

// bindAndValidate binds the request body into req and runs the validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return services.ErrInvalidOperation("invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
