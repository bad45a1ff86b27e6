package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

// UserContextKey holds the authenticated *models.User in the gin context.
const UserContextKey = "user"

// UserLookup loads a user by id without the password hash. It returns
// (nil, nil) when no user matches.
type UserLookup func(ctx context.Context, id primitive.ObjectID) (*models.User, error)

// Protect authenticates Bearer tokens against the users collection.
func Protect(db *mongo.Database, secret string) gin.HandlerFunc {
	return Authenticate(secret, MongoUserLookup(db))
}

func MongoUserLookup(db *mongo.Database) UserLookup {
	return func(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").
			FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"password": 0})).
			Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &user, nil
	}
}

// Authenticate validates the token's id claim and loads the user it names.
func Authenticate(secret string, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			log.Println("[AUTH] [ERROR] missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token."})
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Println("[AUTH] [ERROR] invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token."})
			return
		}

		userID, err := ParseToken(parts[1], secret)
		if err != nil {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token failed."})
			return
		}

		user, err := lookup(c.Request.Context(), userID)
		if err != nil {
			log.Println("[AUTH] [ERROR] user lookup failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token failed."})
			return
		}
		if user == nil {
			log.Println("[AUTH] [WARN] token user not found:", userID.Hex())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token for user not found."})
			return
		}

		c.Set(UserContextKey, user)
		c.Next()
	}
}

// AdminOnly must run after Authenticate.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized, not an admin."})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// IssueToken signs an HS256 token carrying the user id.
func IssueToken(userID primitive.ObjectID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":  userID.Hex(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(tokenString, secret string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !token.Valid {
		return primitive.NilObjectID, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid token claims")
	}

	idValue, ok := claims["id"].(string)
	if !ok || strings.TrimSpace(idValue) == "" {
		return primitive.NilObjectID, errors.New("id claim missing")
	}
	return primitive.ObjectIDFromHex(idValue)
}
