package routes

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/config"
	apptControllers "github.com/c14220110/hospital-backend/internal/appointments/controllers"
	apptRoutes "github.com/c14220110/hospital-backend/internal/appointments/routes"
	apptServices "github.com/c14220110/hospital-backend/internal/appointments/services"
	billingControllers "github.com/c14220110/hospital-backend/internal/billing/controllers"
	billingRoutes "github.com/c14220110/hospital-backend/internal/billing/routes"
	billingServices "github.com/c14220110/hospital-backend/internal/billing/services"
	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	dashboardControllers "github.com/c14220110/hospital-backend/internal/dashboard/controllers"
	dashboardRoutes "github.com/c14220110/hospital-backend/internal/dashboard/routes"
	dashboardServices "github.com/c14220110/hospital-backend/internal/dashboard/services"
	doctorControllers "github.com/c14220110/hospital-backend/internal/doctors/controllers"
	doctorRoutes "github.com/c14220110/hospital-backend/internal/doctors/routes"
	doctorServices "github.com/c14220110/hospital-backend/internal/doctors/services"
	notifControllers "github.com/c14220110/hospital-backend/internal/notifications/controllers"
	notifRoutes "github.com/c14220110/hospital-backend/internal/notifications/routes"
	notifServices "github.com/c14220110/hospital-backend/internal/notifications/services"
	patientControllers "github.com/c14220110/hospital-backend/internal/patients/controllers"
	patientRoutes "github.com/c14220110/hospital-backend/internal/patients/routes"
	patientServices "github.com/c14220110/hospital-backend/internal/patients/services"
	recordsControllers "github.com/c14220110/hospital-backend/internal/records/controllers"
	recordsRoutes "github.com/c14220110/hospital-backend/internal/records/routes"
	recordsServices "github.com/c14220110/hospital-backend/internal/records/services"
	tokenControllers "github.com/c14220110/hospital-backend/internal/tokens/controllers"
	tokenRoutes "github.com/c14220110/hospital-backend/internal/tokens/routes"
	tokenServices "github.com/c14220110/hospital-backend/internal/tokens/services"
	userControllers "github.com/c14220110/hospital-backend/internal/users/controllers"
	userRoutes "github.com/c14220110/hospital-backend/internal/users/routes"
	userServices "github.com/c14220110/hospital-backend/internal/users/services"
	"github.com/c14220110/hospital-backend/pkg/cache"
	"github.com/c14220110/hospital-backend/pkg/events"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/ws"
)

// Deps berisi infrastruktur yang dibuat di main dan dibagi ke semua service.
type Deps struct {
	Config *config.Config
	DB     *sql.DB
	Cache  cache.Cache
	Events events.Publisher
	Hub    *ws.Hub
	Log    *logrus.Logger
}

// Services dikembalikan ke main untuk pekerjaan di luar HTTP (seed admin, sweeper, shutdown).
type Services struct {
	Users  *userServices.UserService
	Tokens *tokenServices.TokenService
}

// Init menginisialisasi semua service, controller, dan routes menggunakan Echo framework.
func Init(e *echo.Echo, d Deps) *Services {
	cfg := d.Config

	// Inisialisasi service
	userService := userServices.NewUserService(d.DB, cfg.JWTSecret, cfg.JWTTTL, d.Log)
	patientService := patientServices.NewPatientService(d.DB, d.Hub, d.Log)
	doctorService := doctorServices.NewDoctorService(d.DB, d.Hub, d.Log, cfg.UploadDir)
	notificationService := notifServices.NewNotificationService(d.DB, d.Hub, d.Log)
	appointmentService := apptServices.NewAppointmentService(d.DB, notificationService, d.Events, d.Hub, d.Log)
	tokenService := tokenServices.NewTokenService(d.DB, d.Cache, cfg.CacheTTL, d.Events, d.Hub, d.Log,
		cfg.Location(), cfg.TokenCallTimeout)
	recordsService := recordsServices.NewRecordsService(d.DB, d.Hub, d.Log)
	billingService := billingServices.NewBillingService(d.DB, d.Cache, cfg.CacheTTL, d.Events, d.Hub, d.Log)

	// Grup publik (tanpa JWT) dan grup utama
	public := e.Group("/api")
	api := e.Group("/api", middlewares.JWTMiddleware(cfg.JWTSecret))

	public.GET("/health", func(c echo.Context) error {
		return response.JSON(c, http.StatusOK, "OK", map[string]interface{}{"ws_clients": d.Hub.ClientCount()})
	})

	userRoutes.RegisterUserRoutes(public, api, userControllers.NewUserController(userService))
	patientRoutes.RegisterPatientRoutes(public, api, patientControllers.NewPatientController(patientService))
	doctorRoutes.RegisterDoctorRoutes(api, doctorControllers.NewDoctorController(doctorService))
	apptRoutes.RegisterAppointmentRoutes(api, apptControllers.NewAppointmentController(appointmentService))
	tokenRoutes.RegisterTokenRoutes(api, tokenControllers.NewTokenController(tokenService))
	billingRoutes.RegisterBillingRoutes(api, billingControllers.NewBillingController(billingService))
	dashboardRoutes.RegisterDashboardRoutes(api, dashboardControllers.NewDashboardController(
		dashboardServices.NewDashboardService(d.DB, d.Log), cfg.Location()))
	recordsRoutes.RegisterRecordsRoutes(api, recordsControllers.NewRecordsController(recordsService))
	notifRoutes.RegisterNotificationRoutes(api, notifControllers.NewNotificationController(notificationService))

	// Browser tidak bisa mengirim header Authorization saat upgrade, token dibaca dari ?token=
	e.GET("/ws", ws.ServeWS(d.Hub), middlewares.JWTMiddleware(cfg.JWTSecret))
	e.Static("/uploads", cfg.UploadDir)

	return &Services{Users: userService, Tokens: tokenService}
}
