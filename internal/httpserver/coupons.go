package httpserver

import (
	"context"
	"net/http"

	"storefront/internal/domain"
	couponsvc "storefront/internal/service/coupon"

	"github.com/gin-gonic/gin"
)

func (h *handlers) validateCoupon(c *gin.Context) {
	h.evaluateCoupon(c, h.deps.CouponSvc.Validate)
}

func (h *handlers) applyCoupon(c *gin.Context) {
	h.evaluateCoupon(c, h.deps.CouponSvc.Apply)
}

type couponEvaluator func(ctx context.Context, customerID string, in couponsvc.EvaluateInput) (domain.CouponResult, error)

func (h *handlers) evaluateCoupon(c *gin.Context, eval couponEvaluator) {
	var req couponsvc.EvaluateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	res, err := eval(c.Request.Context(), currentCustomer(c).ID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) lookupCoupon(c *gin.Context) {
	coupon, err := h.deps.CouponSvc.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}
