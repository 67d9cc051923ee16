package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/keys"
)

type mintOptions struct {
	KeyPEM    []byte
	Algorithm string
	ClientID  string
	Audience  string
	KeyID     string
	TTL       time.Duration
}

var (
	mintKeyFile  string
	mintCertFile string
	mintOpts     mintOptions
)

var assertionMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Sign a client assertion with a private key",
	Long: `Creates a private_key_jwt client assertion for testing. Issuer and subject
are the client id, the audience is the token endpoint of the server.`,
	Example: `  clientauth assertion mint --key client.key --cert client.crt \
    --client-id api1jwtclient --audience https://localhost:44391/connect/token`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPEM, err := os.ReadFile(mintKeyFile)
		if err != nil {
			return fmt.Errorf("reading key file: %w", err)
		}
		opts := mintOpts
		opts.KeyPEM = keyPEM

		if mintCertFile != "" && opts.KeyID == "" {
			certPEM, err := os.ReadFile(mintCertFile)
			if err != nil {
				return fmt.Errorf("reading certificate file: %w", err)
			}
			key, err := keys.FromCertificate(string(certPEM))
			if err != nil {
				return err
			}
			opts.KeyID = key.KeyID
			log.Debug().Str("kid", opts.KeyID).Msg("using certificate thumbprint as key id")
		}

		token, err := mintAssertion(opts, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	assertionCmd.AddCommand(assertionMintCmd)

	flags := assertionMintCmd.Flags()
	flags.StringVarP(&mintKeyFile, "key", "k", "", "PEM private key (or the raw shared secret for HS algorithms)")
	flags.StringVar(&mintCertFile, "cert", "", "Certificate whose thumbprint is used as key id")
	flags.StringVar(&mintOpts.ClientID, "client-id", "", "The client id, used as issuer and subject")
	flags.StringVar(&mintOpts.Audience, "audience", "", "The token endpoint of the server")
	flags.StringVar(&mintOpts.Algorithm, "alg", "RS256", "Signing algorithm")
	flags.StringVar(&mintOpts.KeyID, "kid", "", "Key id header")
	flags.DurationVar(&mintOpts.TTL, "ttl", 5*time.Minute, "Lifetime of the assertion")

	_ = assertionMintCmd.MarkFlagRequired("key")
	_ = assertionMintCmd.MarkFlagRequired("client-id")
	_ = assertionMintCmd.MarkFlagRequired("audience")
}

func mintAssertion(opts mintOptions, now time.Time) (string, error) {
	if opts.ClientID == "" || opts.Audience == "" {
		return "", fmt.Errorf("client id and audience are required")
	}
	if opts.TTL <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	method := jwt.GetSigningMethod(opts.Algorithm)
	if method == nil || opts.Algorithm == "none" {
		return "", fmt.Errorf("unsupported algorithm '%s'", opts.Algorithm)
	}
	signingKey, err := parseSigningKey(opts.Algorithm, opts.KeyPEM)
	if err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Issuer:    opts.ClientID,
		Subject:   opts.ClientID,
		Audience:  jwt.ClaimStrings{opts.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
		ID:        xid.New().String(),
	}
	token := jwt.NewWithClaims(method, claims)
	if opts.KeyID != "" {
		token.Header["kid"] = opts.KeyID
	}
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}

func parseSigningKey(alg string, data []byte) (any, error) {
	var (
		key any
		err error
	)
	switch core.AlgorithmFamily(alg) {
	case core.AlgorithmFamilyRSA:
		key, err = jwt.ParseRSAPrivateKeyFromPEM(data)
	case core.AlgorithmFamilyEC:
		key, err = jwt.ParseECPrivateKeyFromPEM(data)
	case core.AlgorithmFamilyEdDSA:
		key, err = jwt.ParseEdPrivateKeyFromPEM(data)
	case core.AlgorithmFamilyHMAC:
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return nil, fmt.Errorf("shared secret is empty")
		}
		return []byte(secret), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm '%s'", alg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s private key: %w", alg, err)
	}
	return key, nil
}
