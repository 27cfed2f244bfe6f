package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListFavorites(c *gin.Context) {
	favorites, err := h.favorites.List(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, favorites)
}

// AddFavorite is idempotent; adding an existing favorite returns it.
func (h *Handler) AddFavorite(c *gin.Context) {
	id, ok := h.pathID(c, "apartmentId")
	if !ok {
		return
	}
	favorite, err := h.favorites.Add(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, favorite)
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	id, ok := h.pathID(c, "apartmentId")
	if !ok {
		return
	}
	if err := h.favorites.Remove(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
