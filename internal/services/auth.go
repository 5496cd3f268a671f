package services

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "fmt"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/repos"
  "github.com/yungbote/medtrain-backend/internal/requestdata"
  "github.com/yungbote/medtrain-backend/internal/types"
)

type AuthService interface {
  RegisterUser(ctx context.Context, email, password, firstName, lastName string) (*types.User, error)
  LoginUser(ctx context.Context, email, password string) (string, string, error)
  RefreshUser(ctx context.Context, refreshToken string) (string, string, error)
  LogoutUser(ctx context.Context, refreshToken string) error
  SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
  GetAccessTTL() time.Duration
}

type authService struct {
  db            *gorm.DB
  log           *logger.Logger
  userRepo      repos.UserRepo
  userTokenRepo repos.UserTokenRepo
  jwtSecretKey  string
  accessTTL     time.Duration
  refreshTTL    time.Duration
}

func NewAuthService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  userTokenRepo repos.UserTokenRepo,
  jwtSecretKey string,
  accessTTL time.Duration,
  refreshTTL time.Duration,
) AuthService {
  serviceLog := log.With("service", "AuthService")
  return &authService{
    db:            db,
    log:           serviceLog,
    userRepo:      userRepo,
    userTokenRepo: userTokenRepo,
    jwtSecretKey:  jwtSecretKey,
    accessTTL:     accessTTL,
    refreshTTL:    refreshTTL,
  }
}

func (as *authService) GetAccessTTL() time.Duration {
  return as.accessTTL
}

func hashRefreshToken(token string) string {
  sum := sha256.Sum256([]byte(token))
  return hex.EncodeToString(sum[:])
}

func (as *authService) RegisterUser(ctx context.Context, email, password, firstName, lastName string) (*types.User, error) {
  email = strings.ToLower(strings.TrimSpace(email))
  if email == "" || !strings.Contains(email, "@") {
    return nil, fmt.Errorf("Invalid email")
  }
  if len(password) < 8 {
    return nil, fmt.Errorf("Password must be at least 8 characters")
  }

  exists, err := as.userRepo.EmailExists(ctx, nil, email)
  if err != nil {
    return nil, fmt.Errorf("Failed to check email: %w", err)
  }
  if exists {
    return nil, fmt.Errorf("Email already registered")
  }

  hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
  if err != nil {
    return nil, fmt.Errorf("Failed to hash password: %w", err)
  }

  user := &types.User{
    ID:           uuid.New(),
    Email:        email,
    PasswordHash: string(hash),
    FirstName:    strings.TrimSpace(firstName),
    LastName:     strings.TrimSpace(lastName),
    Role:         "trainee",
  }
  if _, err := as.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
    return nil, fmt.Errorf("Failed to create user: %w", err)
  }
  return user, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
  email = strings.ToLower(strings.TrimSpace(email))

  user, err := as.userRepo.GetByEmail(ctx, nil, email)
  if err != nil {
    return "", "", fmt.Errorf("Invalid email or password")
  }
  if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
    return "", "", fmt.Errorf("Invalid email or password")
  }

  var accessToken, refreshToken string
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    tok, genErr := as.generateAccessToken(user)
    if genErr != nil {
      return fmt.Errorf("Generate access token error: %w", genErr)
    }
    accessToken = tok
    refreshToken = uuid.New().String()
    record := &types.UserToken{
      ID:        uuid.New(),
      UserID:    user.ID,
      TokenHash: hashRefreshToken(refreshToken),
      ExpiresAt: time.Now().Add(as.refreshTTL),
    }
    if _, tErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{record}); tErr != nil {
      return fmt.Errorf("Failed to store refresh token: %w", tErr)
    }
    return nil
  }); err != nil {
    return "", "", err
  }

  return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context, refreshToken string) (string, string, error) {
  if strings.TrimSpace(refreshToken) == "" {
    return "", "", fmt.Errorf("Missing refresh token")
  }

  record, err := as.userTokenRepo.GetByHash(ctx, nil, hashRefreshToken(refreshToken))
  if err != nil {
    return "", "", fmt.Errorf("Invalid refresh token")
  }
  if record.ExpiresAt.Before(time.Now()) {
    return "", "", fmt.Errorf("Refresh token expired")
  }

  users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{record.UserID})
  if err != nil || len(users) == 0 {
    return "", "", fmt.Errorf("User not found for refresh token")
  }
  user := users[0]

  var accessToken, newRefreshToken string
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if rErr := as.userTokenRepo.Revoke(ctx, tx, record.ID); rErr != nil {
      return fmt.Errorf("Failed to revoke old refresh token: %w", rErr)
    }
    tok, genErr := as.generateAccessToken(user)
    if genErr != nil {
      return fmt.Errorf("Generate access token error: %w", genErr)
    }
    accessToken = tok
    newRefreshToken = uuid.New().String()
    newRecord := &types.UserToken{
      ID:        uuid.New(),
      UserID:    user.ID,
      TokenHash: hashRefreshToken(newRefreshToken),
      ExpiresAt: time.Now().Add(as.refreshTTL),
    }
    if _, tErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{newRecord}); tErr != nil {
      return fmt.Errorf("Failed to store refresh token: %w", tErr)
    }
    return nil
  }); err != nil {
    return "", "", err
  }

  return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context, refreshToken string) error {
  if strings.TrimSpace(refreshToken) == "" {
    return nil
  }
  record, err := as.userTokenRepo.GetByHash(ctx, nil, hashRefreshToken(refreshToken))
  if err != nil {
    return nil
  }
  return as.userTokenRepo.RevokeAllForUser(ctx, nil, record.UserID)
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
  now := time.Now()
  claims := jwt.MapClaims{
    "sub":  user.ID.String(),
    "role": user.Role,
    "iat":  now.Unix(),
    "exp":  now.Add(as.accessTTL).Unix(),
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken verifies a bearer token and stashes the caller's
// identity in the request context for downstream handlers.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
    if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("Unexpected signing method: %v", t.Header["alg"])
    }
    return []byte(as.jwtSecretKey), nil
  })
  if err != nil || !token.Valid {
    return ctx, fmt.Errorf("Invalid token")
  }

  claims, ok := token.Claims.(jwt.MapClaims)
  if !ok {
    return ctx, fmt.Errorf("Invalid token claims")
  }
  sub, _ := claims["sub"].(string)
  userID, err := uuid.Parse(sub)
  if err != nil {
    return ctx, fmt.Errorf("Invalid subject claim")
  }

  rd := &requestdata.RequestData{
    TokenString: tokenString,
    UserID:      userID,
  }
  return requestdata.WithRequestData(ctx, rd), nil
}
