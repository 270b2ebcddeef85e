package handlers

import (
	"errors"
	"net/http"
	"strings"

	"thermostab/internal/service"

	"github.com/gin-gonic/gin"
)

// OperatorCredentials is the body of both sign-up and sign-in.
type OperatorCredentials struct {
	Username string `json:"username" binding:"required,max=64" example:"lab"`
	Password string `json:"password" binding:"required,max=72" example:"secret"`
}

// bindCredentials writes a 400 and reports false when the body does not bind.
func (h *Handler) bindCredentials(c *gin.Context) (OperatorCredentials, bool) {
	var in OperatorCredentials
	if err := c.ShouldBindJSON(&in); err != nil {
		if h.log != nil {
			h.log.Infow("auth_bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPf + err.Error()})
		return in, false
	}
	in.Username = strings.TrimSpace(in.Username)
	return in, true
}

// @Summary      Register an operator
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   OperatorCredentials  true  "Credentials"
// @Success      200  {object}  map[string]int  "id"
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}
	id, err := h.services.SignUp(in.Username, in.Password)
	if errors.Is(err, service.ErrSignUpClosed) {
		h.logAndJSONError(c, http.StatusForbidden, err.Error(), "auth_sign_up_closed", err, "username", in.Username)
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), "auth_sign_up_failed", err, "username", in.Username)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Issue a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   OperatorCredentials  true  "Credentials"
// @Success      200  {object}  map[string]string  "token"
// @Failure      401  {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}
	token, err := h.services.GenerateToken(in.Username, in.Password)
	if err != nil {
		// one message for unknown operator and wrong password
		h.logAndJSONError(c, http.StatusUnauthorized, "invalid credentials", "auth_sign_in_failed", err, "username", in.Username)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
