package Controllers

import (
	"ClinicFlow/Models"
	"fmt"
	"net/http"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ExportPackSalesTable writes the credit packs sold in a date range to an
// Excel sheet and streams it back.
func ExportPackSalesTable(c *gin.Context) {
	var input struct {
		DateFrom string `json:"date_from"`
		DateTo   string `json:"date_to"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, err)
		return
	}

	var packs []Models.CreditPack

	if input.DateFrom != "" && input.DateTo != "" {
		if err := Models.DB.Model(&Models.CreditPack{}).
			Where("purchase_date BETWEEN ? AND ?", input.DateFrom, input.DateTo).
			Find(&packs).Error; err != nil {
			c.JSON(http.StatusBadRequest, err)
			return
		}
	} else {
		if err := Models.DB.Model(&Models.CreditPack{}).Find(&packs).Error; err != nil {
			c.JSON(http.StatusBadRequest, err)
			return
		}
	}

	headers := map[string]string{
		"A1": "Purchase Date",
		"B1": "Patient",
		"C1": "Sessions",
		"D1": "Remaining",
		"E1": "Price",
		"F1": "State",
	}
	file := excelize.NewFile()
	sheet := "Packs"
	file.NewSheet(sheet)
	file.DeleteSheet("Sheet1")
	for k, v := range headers {
		file.SetCellValue(sheet, k, v)
	}

	for i := 0; i < len(packs); i++ {
		appendRowPackSales(sheet, file, i, packs)
	}
	filename := "./PackSales.xlsx"
	if err := file.SaveAs(filename); err != nil {
		logrus.Error(err)
	}
	c.File(filename)
}

func appendRowPackSales(sheet string, file *excelize.File, index int, rows []Models.CreditPack) *excelize.File {
	rowCount := index + 2
	var patient Models.Patient
	Models.DB.First(&patient, rows[index].PatientID)
	file.SetCellValue(sheet, fmt.Sprintf("A%v", rowCount), rows[index].PurchaseDate)
	file.SetCellValue(sheet, fmt.Sprintf("B%v", rowCount), patient.Name)
	file.SetCellValue(sheet, fmt.Sprintf("C%v", rowCount), rows[index].TotalUnits)
	file.SetCellValue(sheet, fmt.Sprintf("D%v", rowCount), rows[index].RemainingUnits)
	file.SetCellValue(sheet, fmt.Sprintf("E%v", rowCount), rows[index].UnitPriceTotal)
	file.SetCellValue(sheet, fmt.Sprintf("F%v", rowCount), rows[index].State)
	return file
}

// ExportPackUsageExcel lists the appointments booked against one pack.
func ExportPackUsageExcel(c *gin.Context) {
	var input struct {
		PackID uint `json:"pack_id"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pack, err := Models.GetCreditPack(Models.DB, input.PackID)
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	var appointments []Models.Appointment
	if err := Models.DB.Model(&Models.Appointment{}).
		Where("credit_pack_id = ?", pack.ID).
		Order("date, start_time").
		Find(&appointments).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	headers := map[string]string{
		"A1": "Date",
		"B1": "Start",
		"C1": "End",
		"D1": "Provider",
		"E1": "State",
	}

	file := excelize.NewFile()
	sheet := "PackUsage"
	file.NewSheet(sheet)
	file.DeleteSheet("Sheet1")
	for k, v := range headers {
		file.SetCellValue(sheet, k, v)
	}

	for i := 0; i < len(appointments); i++ {
		rowCount := i + 2
		file.SetCellValue(sheet, fmt.Sprintf("A%v", rowCount), appointments[i].Date)
		file.SetCellValue(sheet, fmt.Sprintf("B%v", rowCount), appointments[i].StartTime)
		file.SetCellValue(sheet, fmt.Sprintf("C%v", rowCount), appointments[i].EndTime)
		file.SetCellValue(sheet, fmt.Sprintf("D%v", rowCount), appointments[i].ProviderName)
		file.SetCellValue(sheet, fmt.Sprintf("E%v", rowCount), appointments[i].State)
	}

	filename := "./PackUsage.xlsx"
	if err := file.SaveAs(filename); err != nil {
		logrus.Error(err)
	}
	c.File(filename)
}
