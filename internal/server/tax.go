package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/smallbiznis/vatledger/internal/vat/export"
)

type updateReturnStatusRequest struct {
	Status  string `json:"status"`
	FiledBy string `json:"filed_by"`
}

func (s *Server) CalculateOrderTax(c *gin.Context) {
	record, err := s.vatSvc.CalculateOrderTax(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) RecalculateTaxRecords(c *gin.Context) {
	result, err := s.vatSvc.RecalculateAllTaxRecords(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListTaxRecords(c *gin.Context) {
	var req vatdomain.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	records, err := s.vatSvc.ListTaxRecords(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if records == nil {
		records = []vatdomain.TaxRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) GetTaxSummary(c *gin.Context) {
	var req vatdomain.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	summary, err := s.vatSvc.GetTaxSummary(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetVatBreakdown(c *gin.Context) {
	var req vatdomain.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rows, err := s.vatSvc.GetVatBreakdown(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rows == nil {
		rows = []vatdomain.VatBreakdown{}
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) CreateTaxReturn(c *gin.Context) {
	var req vatdomain.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ret, err := s.vatSvc.CreateTaxReturn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ret})
}

func (s *Server) ListTaxReturns(c *gin.Context) {
	var req vatdomain.ListReturnsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.vatSvc.ListTaxReturns(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Items, "page_info": resp.PageInfo})
}

func (s *Server) GetTaxReturn(c *gin.Context) {
	ret, err := s.vatSvc.GetTaxReturn(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ret})
}

// UpdateTaxReturnStatus only supports DRAFT to FILED.
func (s *Server) UpdateTaxReturnStatus(c *gin.Context) {
	var body updateReturnStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ret, err := s.vatSvc.UpdateTaxReturnStatus(c.Request.Context(), vatdomain.UpdateReturnStatusRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Status:  vatdomain.ReturnStatus(strings.ToUpper(strings.TrimSpace(body.Status))),
		FiledBy: strings.TrimSpace(body.FiledBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ret})
}

// ExportTaxReturn serves the return as an xlsx (default) or pdf attachment.
func (s *Server) ExportTaxReturn(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.exporter.ExportTaxReturn(c.Request.Context(), strings.TrimSpace(c.Param("id")), format)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
