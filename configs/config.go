package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	PostgresURI     string
	RedisURI        string
	R2              R2
	CDNDomain       string
	SecretKey       string
	AdminGroup      string
	SESRegion       string
	EmailSenderBase string
	WhatsAppToken   string
	ListenAddr      string
	SweepSpec       string
	DispatchWorkers int
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		CDNDomain:       getEnv("CDN_DOMAIN", ""),
		SecretKey:       getEnv("SECRET_KEY", ""),
		AdminGroup:      getEnv("ADMIN_GROUP_NAME", "admins"),
		SESRegion:       getEnv("SES_REGION", "eu-central-1"),
		EmailSenderBase: getEnv("EMAIL_SENDER_DOMAIN", ""),
		WhatsAppToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		ListenAddr:      getEnv("LISTEN_ADDR", ":3000"),
		SweepSpec:       getEnv("SWEEP_SPEC", "@every 00h05m00s"),
		DispatchWorkers: 10,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
