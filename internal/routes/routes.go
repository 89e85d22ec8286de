package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/handlers"
	"github.com/chachabrian/tutorlink-backend/internal/middleware"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	Auth     *services.AuthService
	Users    *services.UserService
	Tutors   *services.TutorService
	Bookings *services.BookingService
	Tasks    *services.TaskService
	Reviews  *services.ReviewService
	Calendar *services.CalendarService
	Chat     *services.ChatService
	Hub      *services.Hub

	// UploadDir is served under /uploads when avatars are stored locally.
	UploadDir         string
	AllowOrigins      []string
	MaxRequestsPerMin int
	Logger            *zap.Logger
}

func NewRouter(d Dependencies) *gin.Engine {
	handlers.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger), middleware.SecurityHeaders())

	config := cors.DefaultConfig()
	if len(d.AllowOrigins) == 0 || (len(d.AllowOrigins) == 1 && d.AllowOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = d.AllowOrigins
	}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	r.Use(cors.New(config))

	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connectedClients": d.Hub.GetConnectedClients()})
	})

	api := r.Group("/api")
	api.Use(middleware.NewRateLimiter(d.MaxRequestsPerMin, d.Logger).Middleware())
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(d.Auth))
			auth.POST("/login", handlers.Login(d.Auth))
			auth.POST("/logout", middleware.AuthMiddleware(d.Auth), handlers.Logout(d.Auth))
		}

		tutorsPublic := api.Group("/tutors")
		{
			tutorsPublic.GET("", handlers.ListTutors(d.Tutors))
			tutorsPublic.GET("/:id", handlers.GetTutor(d.Tutors))
		}
		api.GET("/reviews/tutors/:id", handlers.GetTutorReviews(d.Reviews))

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(d.Auth), handlers.WebSocketHandler(d.Hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(d.Auth))
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(d.Users))
				users.PUT("/profile", handlers.UpdateProfile(d.Users))
				users.POST("/avatar", handlers.UploadAvatar(d.Users))
				users.POST("/push-token", handlers.SetPushToken(d.Users))
				users.DELETE("/push-token", handlers.ClearPushToken(d.Users))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("/preferences", handlers.GetNotificationPreferences(d.Users))
				notifications.PUT("/preferences", handlers.UpdateNotificationPreferences(d.Users))
			}

			tutor := protected.Group("/tutors")
			tutor.Use(middleware.RequireRole(models.RoleTutor))
			{
				tutor.PUT("/profile", handlers.UpdateTutorProfile(d.Tutors))
				tutor.PUT("/availability", handlers.SetAvailability(d.Tutors))
				tutor.GET("/earnings", handlers.GetEarnings(d.Tutors))
			}

			booking := protected.Group("/booking")
			{
				booking.GET("/dashboard", handlers.GetDashboard(d.Bookings))
				booking.GET("/notifications", handlers.GetNotifications(d.Bookings))
				booking.PUT("/notifications/:id/acknowledge", handlers.AcknowledgeNotification(d.Bookings))

				booking.GET("/student/bookings", middleware.RequireRole(models.RoleStudent), handlers.GetStudentBookings(d.Bookings))
				booking.GET("/tutor/bookings", middleware.RequireRole(models.RoleTutor), handlers.GetTutorBookings(d.Bookings))
				booking.GET("/tutor/sessions", middleware.RequireRole(models.RoleTutor), handlers.GetTutorSessions(d.Bookings))
				booking.GET("/tutor/requests", middleware.RequireRole(models.RoleTutor), handlers.GetPendingRequests(d.Bookings))
				booking.GET("/requests/pending", middleware.RequireRole(models.RoleTutor), handlers.GetPendingRequests(d.Bookings))
				booking.PUT("/requests/:id/respond", handlers.RespondToRequest(d.Bookings))

				booking.POST("/bookings", handlers.CreateBooking(d.Bookings))
				booking.GET("/bookings/:id", handlers.GetBooking(d.Bookings))
				booking.PUT("/bookings/:id/cancel", handlers.CancelBooking(d.Bookings))
				booking.PUT("/bookings/:id/reschedule", handlers.RescheduleBooking(d.Bookings))
				booking.PUT("/bookings/:id/reschedule-response", handlers.RespondToReschedule(d.Bookings))
				booking.POST("/bookings/:id/complete", handlers.CompleteBooking(d.Bookings))
			}

			protected.POST("/reviews/bookings/:id/review", handlers.CreateReview(d.Reviews))

			calendar := protected.Group("/calendar")
			{
				calendar.GET("", handlers.GetCalendar(d.Calendar))
				calendar.GET("/export", handlers.ExportCalendar(d.Calendar))
			}

			tasks := protected.Group("/tasks")
			{
				tasks.GET("", handlers.ListTasks(d.Tasks))
				tasks.POST("", handlers.CreateTask(d.Tasks))
				tasks.GET("/:id", handlers.GetTask(d.Tasks))
				tasks.PUT("/:id", handlers.UpdateTask(d.Tasks))
				tasks.PATCH("/:id/status", handlers.UpdateTaskStatus(d.Tasks))
				tasks.DELETE("/:id", handlers.DeleteTask(d.Tasks))
			}

			protected.POST("/chat", handlers.Chat(d.Chat))
		}
	}

	return r
}
