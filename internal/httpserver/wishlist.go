package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	wishlistsvc "storefront/internal/service/wishlist"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listWishlist(c *gin.Context) {
	items, err := h.deps.WishlistSvc.List(c.Request.Context(), currentCustomer(c).ID)
	h.respondWishlist(c, items, err)
}

func (h *handlers) addWishlistItem(c *gin.Context) {
	var req wishlistsvc.AddInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	items, err := h.deps.WishlistSvc.Add(c.Request.Context(), currentCustomer(c).ID, req)
	h.respondWishlist(c, items, err)
}

func (h *handlers) removeWishlistItem(c *gin.Context) {
	items, err := h.deps.WishlistSvc.Remove(c.Request.Context(), currentCustomer(c).ID, c.Param("productId"))
	h.respondWishlist(c, items, err)
}

func (h *handlers) respondWishlist(c *gin.Context, items []domain.WishlistItem, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.WishlistItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
