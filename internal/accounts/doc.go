// Package accounts orchestrates login, student self-registration, and
// operator provisioning on top of the auth core and the store.
//
// Login delegates the credential check to an auth.Authenticator so unknown
// emails, wrong passwords, and unusable accounts are indistinguishable, then
// issues a token.
//
// Register validates fields, then password confirmation, then email
// uniqueness, then the department, and only then writes the account and
// student profile in one transaction. The resulting account is always
// ROLE_STUDENT. Teacher accounts come from Provisioner.
//
// StoreCredentials adapts store accounts to auth.CredentialStore.
package accounts
