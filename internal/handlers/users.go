package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type AdminUpdateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" binding:"omitempty,email"`
	IsAdmin *bool  `json:"isAdmin"`
}

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

var noPassword = options.FindOne().SetProjection(bson.M{"password": 0})

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func authResponse(user models.User, token string) gin.H {
	body := gin.H{
		"_id":     user.ID.Hex(),
		"name":    user.Name,
		"email":   user.Email,
		"isAdmin": user.IsAdmin,
	}
	if token != "" {
		body["token"] = token
	}
	return body
}

func Register(db *mongo.Database, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] register password hash failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "password hash failed")
			return
		}

		now := time.Now()
		user := models.User{
			Name:         strings.TrimSpace(req.Name),
			Email:        normalizeEmail(req.Email),
			PasswordHash: string(hash),
			Wishlist:     []primitive.ObjectID{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(database.UsersCollection).InsertOne(ctx, user)
		if mongo.IsDuplicateKeyError(err) {
			respondWithError(c, http.StatusBadRequest, route, "User already exists.")
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] register insert failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			user.ID = id
		}

		token, err := middleware.IssueToken(user.ID, jwtSecret, accessTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] register token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		c.JSON(http.StatusCreated, authResponse(user, token))
	}
}

func Login(db *mongo.Database, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var user models.User
		err := db.Collection(database.UsersCollection).FindOne(ctx, bson.M{"email": normalizeEmail(req.Email)}).Decode(&user)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			log.Println("[AUTH] [ERROR] login user lookup failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			log.Println("[AUTH] [WARN] login invalid credentials")
			respondWithError(c, http.StatusUnauthorized, route, "Invalid email or password.")
			return
		}

		token, err := middleware.IssueToken(user.ID, jwtSecret, accessTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] user login succeeded:", user.Email)
		c.JSON(http.StatusOK, authResponse(user, token))
	}
}

func GetUserProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateUserProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/users/profile"
		defer handlePanic(c, route)

		current, _ := middleware.CurrentUser(c)

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		set := bson.M{"updatedAt": time.Now()}
		if name := strings.TrimSpace(req.Name); name != "" {
			set["name"] = name
		}
		if email := normalizeEmail(req.Email); email != "" {
			set["email"] = email
		}
		if req.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "password hash failed")
				return
			}
			set["password"] = string(hash)
		}

		updated, status, err := updateUser(c, db, current.ID, set)
		if err != nil {
			respondWithError(c, status, route, err.Error())
			return
		}
		c.JSON(http.StatusOK, authResponse(*updated, ""))
	}
}

// updateUser applies set and returns the stored user without its password.
func updateUser(c *gin.Context, db *mongo.Database, id primitive.ObjectID, set bson.M) (*models.User, int, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var user models.User
	err := db.Collection(database.UsersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"password": 0}),
	).Decode(&user)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, http.StatusNotFound, errors.New("User not found.")
	case mongo.IsDuplicateKeyError(err):
		return nil, http.StatusBadRequest, errors.New("Email already in use.")
	case err != nil:
		return nil, http.StatusInternalServerError, errors.New("db error")
	}
	return &user, http.StatusOK, nil
}

func GetUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(database.UsersCollection).Find(ctx, bson.M{},
			options.Find().SetProjection(bson.M{"password": 0}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		users := make([]models.User, 0)
		if err := cursor.All(ctx, &users); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func GetUserByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var user models.User
		err := db.Collection(database.UsersCollection).FindOne(ctx, bson.M{"_id": id}, noPassword).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "User not found.")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateUserByAdmin(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/users/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req AdminUpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		set := bson.M{"updatedAt": time.Now()}
		if name := strings.TrimSpace(req.Name); name != "" {
			set["name"] = name
		}
		if email := normalizeEmail(req.Email); email != "" {
			set["email"] = email
		}
		if req.IsAdmin != nil {
			set["isAdmin"] = *req.IsAdmin
		}

		updated, status, err := updateUser(c, db, id, set)
		if err != nil {
			respondWithError(c, status, route, err.Error())
			return
		}
		c.JSON(http.StatusOK, authResponse(*updated, ""))
	}
}

func DeleteUserByAdmin(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/users/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}
		admin, _ := middleware.CurrentUser(c)
		if admin.ID == id {
			respondWithError(c, http.StatusBadRequest, route, "Admins cannot delete themselves via this route.")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(database.UsersCollection).DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "User not found.")
			return
		}

		log.Println("[AUTH] [INFO] user deleted by admin:", id.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully."})
	}
}
