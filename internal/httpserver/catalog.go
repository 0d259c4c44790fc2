package httpserver

import (
	"net/http"
	"strconv"

	inventorysvc "storefront/internal/service/inventory"
	settingssvc "storefront/internal/service/settings"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.ProductSvc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(products), "results": products})
}

func (h *handlers) getProduct(c *gin.Context) {
	product, err := h.deps.ProductSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handlers) checkInventory(c *gin.Context) {
	qty := 1
	if raw := c.Query("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.badRequest(c, "quantity must be an integer")
			return
		}
		qty = n
	}
	availability, err := h.deps.InventorySvc.Check(c.Request.Context(), inventorysvc.CheckInput{
		ProductID: c.Query("productId"),
		Size:      c.Query("size"),
		Color:     c.Query("color"),
		Quantity:  qty,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

func (h *handlers) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.SettingsSvc.Get(c.Request.Context()))
}

func (h *handlers) updateSettings(c *gin.Context) {
	var req settingssvc.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	updated, err := h.deps.SettingsSvc.Update(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
