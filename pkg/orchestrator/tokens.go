// Copyright (c) The ClusterLink Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jwt"
	"k8s.io/utils/clock"

	"github.com/clusterlink-net/arrowhead/pkg/api"
)

const (
	// TokenSignatureAlgorithm signs authorization tokens.
	TokenSignatureAlgorithm = jwa.RS256
	// DefaultTokenExpiry is the default lifetime of authorization tokens.
	DefaultTokenExpiry = time.Hour

	tokenIssuer = "orchestrator"

	// Authorization token claims.
	ConsumerClaim  = "cid"
	ServiceClaim   = "sid"
	InterfaceClaim = "iid"
)

// TokenIssuer generates authorization tokens for orchestration results.
type TokenIssuer interface {
	// Issue returns a token per interface of the result.
	Issue(consumer *api.System, result *api.OrchestrationResult) (map[string]string, error)
}

// JWTIssuer issues signed JWT authorization tokens.
type JWTIssuer struct {
	key    jwk.Key
	expiry time.Duration
	clock  clock.PassiveClock
}

// Issue returns a signed token per interface of the result.
func (i *JWTIssuer) Issue(consumer *api.System, result *api.OrchestrationResult) (map[string]string, error) {
	now := i.clock.Now()
	tokens := make(map[string]string, len(result.Interfaces))

	for _, iface := range result.Interfaces {
		token, err := jwt.NewBuilder().
			Issuer(tokenIssuer).
			Subject(result.Provider.SystemName).
			IssuedAt(now).
			Expiration(now.Add(i.expiry)).
			Claim(ConsumerClaim, consumer.SystemName).
			Claim(ServiceClaim, result.Service.ServiceDefinition).
			Claim(InterfaceClaim, iface.InterfaceName).
			Build()
		if err != nil {
			return nil, fmt.Errorf("unable to generate authorization token: %w", err)
		}

		signed, err := jwt.Sign(token, TokenSignatureAlgorithm, i.key)
		if err != nil {
			return nil, fmt.Errorf("unable to sign authorization token: %w", err)
		}

		tokens[iface.InterfaceName] = string(signed)
	}

	return tokens, nil
}

// NewJWTIssuer returns a token issuer signing with the given key.
// A zero expiry selects the default expiry.
func NewJWTIssuer(key *rsa.PrivateKey, expiry time.Duration) (*JWTIssuer, error) {
	signKey, err := jwk.New(key)
	if err != nil {
		return nil, fmt.Errorf("unable to create JWK signing key: %w", err)
	}

	if expiry == 0 {
		expiry = DefaultTokenExpiry
	}

	return &JWTIssuer{
		key:    signKey,
		expiry: expiry,
		clock:  clock.RealClock{},
	}, nil
}
