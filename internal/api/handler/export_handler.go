package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/changrun1/QAQ-backend/internal/service"
	"github.com/changrun1/QAQ-backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportStudentData 导出本人课表与成绩
// GET /api/data/:studentId/export
func (h *ExportHandler) ExportStudentData(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportStudentData(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 17001, "找不到学生资料，请先同步")
	case errors.Is(err, service.ErrExportGenerateFail):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, 17003, "生成导出文件失败")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
