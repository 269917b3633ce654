// Copyright (c) Microsoft. All rights reserved.

package connector

import (
	"crypto"
	"crypto/x509"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// The constructors below are thin wrappers over azidentity so hosts can pick
// a credential flow without importing the Azure SDK directly. Token caching,
// refresh, and the underlying MSAL flows all belong to azidentity.

// BotFrameworkTenant is the tenant used by single-tenant Bot Framework
// registrations when none is configured.
const BotFrameworkTenant = "botframework.com"

// NewClientSecretCredential authenticates the bot's app registration with a
// client secret.
func NewClientSecretCredential(tenantID, clientID, secret string) (azcore.TokenCredential, error) {
	if tenantID == "" {
		tenantID = BotFrameworkTenant
	}
	return azidentity.NewClientSecretCredential(tenantID, clientID, secret, nil)
}

// NewCertificateCredential authenticates the bot's app registration with a
// client certificate.
func NewCertificateCredential(tenantID, clientID string, certs []*x509.Certificate, key crypto.PrivateKey) (azcore.TokenCredential, error) {
	if tenantID == "" {
		tenantID = BotFrameworkTenant
	}
	return azidentity.NewClientCertificateCredential(tenantID, clientID, certs, key, nil)
}

// NewManagedIdentityCredential authenticates with the hosting platform's
// managed identity. clientID selects a user-assigned identity; leave it
// empty for the system-assigned one.
func NewManagedIdentityCredential(clientID string) (azcore.TokenCredential, error) {
	opts := &azidentity.ManagedIdentityCredentialOptions{}
	if clientID != "" {
		opts.ID = azidentity.ClientID(clientID)
	}
	return azidentity.NewManagedIdentityCredential(opts)
}

// NewDefaultCredential chains environment, managed identity, and developer
// tool credentials, trying each in order.
func NewDefaultCredential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}
