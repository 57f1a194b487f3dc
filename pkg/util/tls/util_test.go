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

package tls_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterlink-net/arrowhead/pkg/util/tls"
)

func TestReadRSAPrivateKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	dir := t.TempDir()

	pkcs1 := filepath.Join(dir, "pkcs1.pem")
	require.Nil(t, os.WriteFile(pkcs1, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))

	parsed, err := tls.ReadRSAPrivateKey(pkcs1)
	require.Nil(t, err)
	require.True(t, key.Equal(parsed))

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.Nil(t, err)
	pkcs8 := filepath.Join(dir, "pkcs8.pem")
	require.Nil(t, os.WriteFile(pkcs8, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

	parsed, err = tls.ReadRSAPrivateKey(pkcs8)
	require.Nil(t, err)
	require.True(t, key.Equal(parsed))

	garbage := filepath.Join(dir, "garbage.pem")
	require.Nil(t, os.WriteFile(garbage, []byte("not a key"), 0o600))
	_, err = tls.ReadRSAPrivateKey(garbage)
	require.NotNil(t, err)
}
