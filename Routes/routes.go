package Routes

import (
	"ClinicFlow/Controllers"
	"ClinicFlow/Middleware"
	"ClinicFlow/SSE"
	"ClinicFlow/Whatsapp"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func ConfigRoutes(router *gin.Engine) {
	// Gzip Compression
	router.Use(gzip.Gzip(gzip.BestSpeed))

	// Public routes
	public := router.Group("/api")
	{
		public.POST("/login", Controllers.Login)
		public.POST("/register", Controllers.Register)
		public.POST("/SaveFcmToken", Controllers.SaveFCM)
		public.POST("/GetAvailableSlots", Controllers.GetAvailableSlots)
		public.POST("/IsSlotFree", Controllers.IsSlotFree)
		public.GET("/GetProvidersTrimmed", Controllers.GetProvidersTrimmed)
	}

	// Authorized routes
	authorized := router.Group("/api/protected")
	authorized.Use(Middleware.JwtAuthMiddleware())
	{
		// User-related routes
		authorized.GET("/user", Controllers.CurrentUser)
		authorized.POST("/DeleteUser", Controllers.DeleteUser)

		// Appointment-related routes
		authorized.POST("/CreateAppointment", Controllers.CreateAppointment)
		authorized.POST("/UpdateAppointment", Controllers.UpdateAppointment)
		authorized.POST("/CancelAppointment", Controllers.CancelAppointment)
		authorized.POST("/ChangeAppointmentState", Controllers.ChangeAppointmentState)
		authorized.POST("/SwapAppointmentCredit", Controllers.SwapAppointmentCredit)
		authorized.POST("/ReleaseAppointmentCredit", Controllers.ReleaseAppointmentCredit)
		authorized.POST("/FetchAppointmentsByDate", Controllers.FetchAppointmentsByDate)
		authorized.POST("/FetchAppointmentsByPatientID", Controllers.FetchAppointmentsByPatientID)

		// Credit-pack routes
		authorized.POST("/PurchaseCreditPack", Controllers.PurchaseCreditPack)
		authorized.POST("/FetchCreditPack", Controllers.FetchCreditPack)
		authorized.POST("/FetchActiveCreditPacks", Controllers.FetchActiveCreditPacks)
		authorized.POST("/FetchPatientCreditPacks", Controllers.FetchPatientCreditPacks)
		authorized.POST("/FetchPackAppointments", Controllers.FetchPackAppointments)
		authorized.POST("/ChangeCreditPackState", Controllers.ChangeCreditPackState)

		// Provider-related routes
		authorized.POST("/RegisterProvider", Controllers.RegisterProvider)
		authorized.POST("/DeleteProvider", Controllers.DeleteProvider)
		authorized.GET("/GetProviders", Controllers.GetProviders)

		// Patient-related routes
		authorized.GET("/FetchPatients", Controllers.FetchPatients)
		authorized.POST("/FetchPatientFilesURLs", Controllers.FetchPatientFilesURLs)
		authorized.POST("/UploadPatientRecord", Controllers.UploadPatientRecord)
		authorized.POST("/DeletePatientRecord", Controllers.DeletePatientRecord)
		authorized.POST("/UpdatePatient", Controllers.UpdatePatient)
		authorized.POST("/CreatePatient", Controllers.CreatePatient)
		authorized.POST("/DeletePatient", Controllers.DeletePatient)

		// WhatsApp-related routes
		authorized.GET("/CheckWhatsAppLogin", Whatsapp.CheckLogin)
		authorized.GET("/GetWhatsAppQRCode", Whatsapp.GetQRCode)

		// SSE (Server-Sent Events) route
		authorized.GET("/RequestSSE", SSE.RequestSSE)

		// Export-related routes
		authorized.POST("/ExportPackSalesTable", Controllers.ExportPackSalesTable)
		authorized.POST("/ExportPackUsageExcel", Controllers.ExportPackUsageExcel)
	}

	// Static file serving
	authorized.Static("/PatientRecords", "./PatientRecords")
	router.Static("/Web", "./Static")
}
