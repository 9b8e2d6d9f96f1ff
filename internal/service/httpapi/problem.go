package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

// ContentTypeProblemJSON — media type ответов об ошибках (RFC 7807).
const ContentTypeProblemJSON = "application/problem+json"

// Problem — тело ответа об ошибке в формате RFC 7807.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p Problem) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

func (p Problem) withDetail(detail string) Problem {
	p.Detail = detail
	return p
}

var (
	problemBadRequest      = Problem{Type: "/problems/bad-request", Title: "Bad Request", Status: http.StatusBadRequest}
	problemUnauthenticated = Problem{Type: "/problems/unauthorized", Title: "Unauthorized", Status: http.StatusUnauthorized}
	problemForbidden       = Problem{Type: "/problems/forbidden", Title: "Forbidden", Status: http.StatusForbidden}
	problemNotFound        = Problem{Type: "/problems/not-found", Title: "Resource Not Found", Status: http.StatusNotFound}
	problemConflict        = Problem{Type: "/problems/toad-pool-exhausted", Title: "No Free Toad", Status: http.StatusConflict}
	problemPrecondition    = Problem{Type: "/problems/order-not-issued", Title: "Order Not Issued", Status: http.StatusPreconditionFailed}
	problemInternal        = Problem{Type: "/problems/internal-error", Title: "Internal Server Error", Status: http.StatusInternalServerError}
)

// problemFor переводит ошибку сервиса заказов в HTTP-проблему.
func problemFor(err error) Problem {
	var problem Problem
	switch {
	case errors.As(err, &problem):
		return problem
	case errors.Is(err, domain.ErrForbidden):
		return problemForbidden.withDetail(err.Error())
	case domain.IsNotFound(err):
		return problemNotFound.withDetail(err.Error())
	case errors.Is(err, domain.ErrOrderNotIssued):
		return problemPrecondition.withDetail(err.Error())
	case errors.Is(err, domain.ErrToadPoolExhausted):
		return problemConflict.withDetail(err.Error())
	case domain.IsConfiguration(err):
		return problemInternal.withDetail("order service is misconfigured")
	default:
		// Детали ошибок хранилища клиенту не отдаются.
		return problemInternal
	}
}

func respondProblem(c *gin.Context, problem Problem) {
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	respondProblem(c, problemFor(err))
}
