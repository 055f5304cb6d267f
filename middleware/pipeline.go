// Package middleware holds the request interceptors that run before any
// handler: authentication, role checks, request ids and access logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Rejection short-circuits a request with a status and an error message.
type Rejection struct {
	Status  int
	Message string
}

// Interceptor inspects a request and either returns the context the rest of
// the chain should see, or a Rejection.
type Interceptor interface {
	Intercept(r *http.Request) (context.Context, *Rejection)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(r *http.Request) (context.Context, *Rejection)

func (f InterceptorFunc) Intercept(r *http.Request) (context.Context, *Rejection) {
	return f(r)
}

// Pipeline is an ordered list of interceptors. Order is the contract:
// authenticate first, authorize after.
type Pipeline []Interceptor

// Chain builds a pipeline.
func Chain(interceptors ...Interceptor) Pipeline {
	return Pipeline(interceptors)
}

// Then returns a new pipeline with more interceptors appended.
func (p Pipeline) Then(interceptors ...Interceptor) Pipeline {
	out := make(Pipeline, 0, len(p)+len(interceptors))
	out = append(out, p...)
	return append(out, interceptors...)
}

// Run applies every interceptor in order, threading the augmented context.
// It stops at the first rejection.
func (p Pipeline) Run(r *http.Request) (*http.Request, *Rejection) {
	for _, ic := range p {
		ctx, rej := ic.Intercept(r)
		if rej != nil {
			return r, rej
		}
		if ctx != nil && ctx != r.Context() {
			r = r.WithContext(ctx)
		}
	}
	return r, nil
}

// Handler mounts the pipeline as gin middleware.
func (p Pipeline) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, rej := p.Run(c.Request)
		if rej != nil {
			c.AbortWithStatusJSON(rej.Status, gin.H{"error": rej.Message})
			return
		}
		c.Request = req
		c.Next()
	}
}

func reject(status int) *Rejection {
	return &Rejection{Status: status, Message: http.StatusText(status)}
}
