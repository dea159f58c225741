package main

import (
	"fmt"
	"log"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ethiobus/booking-backend/internal/utils"
	"github.com/ethiobus/booking-backend/pkg/jwt"
)

func main() {
	adminKey := flag.String("admin-key", "", "hash this admin key instead of generating one")
	devUser := flag.String("dev-token-user", "", "also issue an access token for this user id")
	devPhone := flag.String("dev-token-phone", "+251911000000", "phone claim of the development token")
	devExpiry := flag.Duration("dev-token-expiry", 24*time.Hour, "lifetime of the development token")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the bus booking backend")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, err := utils.GenerateSecret(32) // 256-bit
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}

	key := *adminKey
	var hash string
	if key == "" {
		key, hash, err = utils.GenerateAdminKey()
	} else {
		hash, err = utils.HashAdminKey(key)
	}
	if err != nil {
		log.Fatalf("Failed to prepare admin key: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("ADMIN_API_KEY_HASH=%s\n", hash)
	fmt.Println()
	fmt.Println("Send this value in the X-Admin-Key header:")
	fmt.Printf("%s\n", key)

	if *devUser != "" {
		token, err := jwt.NewService(jwtSecret, *devExpiry).GenerateAccessToken(*devUser, *devPhone, []string{"passenger"})
		if err != nil {
			log.Fatalf("Failed to issue development token: %v", err)
		}
		fmt.Println()
		fmt.Println("Development access token (signed with the JWT_SECRET above):")
		fmt.Printf("Authorization: Bearer %s\n", token)
	}

	fmt.Println()
	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
