package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicBase string
}

type OAuthApp struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Workflow struct {
	BaseURL   string
	AuthToken string
}

type Export struct {
	FFmpegBinary  string
	FFprobeBinary string
	WorkDir       string
}

type Config struct {
	Facebook  OAuthApp
	Instagram OAuthApp
	LinkedIn  OAuthApp
	Twitter   OAuthApp
	Tiktok    OAuthApp

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	PostgresURI string
	RedisURI    string
	FrontendURL string
	R2          R2
	Workflow    Workflow
	Export      Export
	SecretKey   string
	CookieName  string
}

func LoadConfig() *Config {
	return &Config{
		Facebook: OAuthApp{
			ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("FACEBOOK_REDIRECT_URI", ""),
		},
		Instagram: OAuthApp{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		},
		LinkedIn: OAuthApp{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		},
		Twitter: OAuthApp{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TWITTER_REDIRECT_URI", ""),
		},
		Tiktok: OAuthApp{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TIKTOK_REDIRECT_URI", ""),
		},
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", ""),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicBase: getEnv("R2_PUBLIC_BASE", ""),
		},
		Workflow: Workflow{
			BaseURL:   getEnv("WORKFLOW_BASE_URL", ""),
			AuthToken: getEnv("WORKFLOW_AUTH_TOKEN", ""),
		},
		Export: Export{
			FFmpegBinary:  getEnv("FFMPEG_BINARY", "ffmpeg"),
			FFprobeBinary: getEnv("FFPROBE_BINARY", "ffprobe"),
			WorkDir:       getEnv("EXPORT_WORK_DIR", os.TempDir()),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "contentpilot_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
