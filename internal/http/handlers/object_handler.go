package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/storage"
)

// ObjectHandler выдаёт предподписанные цели загрузки и раздаёт
// сохранённые объекты.
type ObjectHandler struct {
	storage *storage.ObjectStorage
}

// NewObjectHandler создаёт новый хэндлер.
func NewObjectHandler(store *storage.ObjectStorage) *ObjectHandler {
	return &ObjectHandler{storage: store}
}

type presignRequest struct {
	FileType string `json:"file_type" binding:"required"`
}

// Presign обрабатывает POST /api/objects/upload: выдаёт предподписанный
// PUT для прямой загрузки в хранилище.
func (h *ObjectHandler) Presign(c *gin.Context) {
	var req presignRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	target, err := h.storage.PresignUpload(c.Request.Context(), req.FileType)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, target)
}

// Serve обрабатывает GET /objects/:dir/:file — стримит объект клиенту.
func (h *ObjectHandler) Serve(c *gin.Context) {
	dir := c.Param("dir")
	file := c.Param("file")
	if dir == "" || file == "" {
		common.RespondBadRequest(c, "не указан путь объекта")
		return
	}

	body, contentType, err := h.storage.Get(c.Request.Context(), dir+"/"+file)
	if err != nil {
		common.RespondError(c, http.StatusNotFound, "объект не найден")
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
