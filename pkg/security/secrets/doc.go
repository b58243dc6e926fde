/*
Package secrets resolves ${secret:name} references in the credential
fields of the configuration.

A config file can keep the provider key out of version control:

	provider:
	  api_key: ${secret:openai-api-key}
	session:
	  secret: ${secret:session-secret}

At startup the reference is looked up in the secrets directory (file
"openai-api-key", mode 0600 or 0400) when one is configured, then in the
environment (RELAY_SECRET_OPENAI_API_KEY by default). A reference that no
provider can resolve fails startup.
*/
package secrets
