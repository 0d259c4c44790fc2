package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"

	"github.com/gin-gonic/gin"
)

func (h *handlers) respondCart(c *gin.Context, contents domain.CartContents, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contents.Normalize())
}

func (h *handlers) getCart(c *gin.Context) {
	contents, err := h.deps.CartSvc.Get(c.Request.Context(), currentCustomer(c).ID)
	h.respondCart(c, contents, err)
}

func (h *handlers) clearCart(c *gin.Context) {
	contents, err := h.deps.CartSvc.Clear(c.Request.Context(), currentCustomer(c).ID)
	h.respondCart(c, contents, err)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	contents, err := h.deps.CartSvc.AddItem(c.Request.Context(), currentCustomer(c).ID, req)
	h.respondCart(c, contents, err)
}

func (h *handlers) addSavedItem(c *gin.Context) {
	var req cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	contents, err := h.deps.CartSvc.AddSaved(c.Request.Context(), currentCustomer(c).ID, req)
	h.respondCart(c, contents, err)
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req cartsvc.UpdateItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	contents, err := h.deps.CartSvc.UpdateItem(c.Request.Context(), currentCustomer(c).ID, c.Param("id"), req)
	h.respondCart(c, contents, err)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	contents, err := h.deps.CartSvc.RemoveItem(c.Request.Context(), currentCustomer(c).ID, c.Param("id"))
	h.respondCart(c, contents, err)
}

func (h *handlers) saveForLater(c *gin.Context) {
	contents, err := h.deps.CartSvc.SaveForLater(c.Request.Context(), currentCustomer(c).ID, c.Param("id"))
	h.respondCart(c, contents, err)
}

func (h *handlers) moveToCart(c *gin.Context) {
	contents, err := h.deps.CartSvc.MoveToCart(c.Request.Context(), currentCustomer(c).ID, c.Param("id"))
	h.respondCart(c, contents, err)
}

func (h *handlers) removeSavedItem(c *gin.Context) {
	contents, err := h.deps.CartSvc.RemoveSaved(c.Request.Context(), currentCustomer(c).ID, c.Param("id"))
	h.respondCart(c, contents, err)
}
