package config

import (
	"os"
	"path/filepath"
)

// CredentialDetector looks for credentials needed by s3://, gs://, azblob://
// and k8s:// targets. It only inspects the environment and well-known files; it never
// contacts the providers.
type CredentialDetector struct {
	getenv  func(string) string
	homeDir string
}

// DetectionResult describes what was found for one scheme
type DetectionResult struct {
	Scheme    string
	Available bool
	Source    string
}

// NewCredentialDetector creates a detector bound to the process environment
func NewCredentialDetector() *CredentialDetector {
	home, _ := os.UserHomeDir()
	return &CredentialDetector{
		getenv:  os.Getenv,
		homeDir: home,
	}
}

// DetectFor returns one result per cloud scheme used by cfg's targets
func (d *CredentialDetector) DetectFor(cfg *Config) []DetectionResult {
	var results []DetectionResult
	for _, scheme := range cfg.TargetSchemes() {
		switch scheme {
		case "s3":
			results = append(results, d.DetectAWS(cfg.AWS))
		case "gs":
			results = append(results, d.DetectGCS(cfg.GCS))
		case "azblob":
			results = append(results, d.DetectAzure(cfg.Azure))
		case "k8s":
			results = append(results, d.DetectKubernetes(cfg.Kubernetes))
		}
	}
	return results
}

// DetectAWS checks env credentials, profile selection and the shared credentials file
func (d *CredentialDetector) DetectAWS(aws AWSConfig) DetectionResult {
	result := DetectionResult{Scheme: "s3"}

	if d.getenv("AWS_ACCESS_KEY_ID") != "" && d.getenv("AWS_SECRET_ACCESS_KEY") != "" {
		result.Available = true
		result.Source = "environment"
		return result
	}

	if d.getenv("AWS_WEB_IDENTITY_TOKEN_FILE") != "" || d.getenv("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI") != "" {
		result.Available = true
		result.Source = "workload identity"
		return result
	}

	credFile := d.getenv("AWS_SHARED_CREDENTIALS_FILE")
	if credFile == "" && d.homeDir != "" {
		credFile = filepath.Join(d.homeDir, ".aws", "credentials")
	}
	if credFile != "" && fileExists(credFile) {
		result.Available = true
		result.Source = credFile
		if aws.Profile != "" {
			result.Source += " (profile " + aws.Profile + ")"
		}
		return result
	}

	result.Source = "no credentials found; instance roles may still apply"
	return result
}

// DetectGCS checks an explicit credentials file, GOOGLE_APPLICATION_CREDENTIALS and gcloud ADC
func (d *CredentialDetector) DetectGCS(gcs GCSConfig) DetectionResult {
	result := DetectionResult{Scheme: "gs"}

	candidates := []string{gcs.CredentialsFile, d.getenv("GOOGLE_APPLICATION_CREDENTIALS")}
	if d.homeDir != "" {
		candidates = append(candidates, filepath.Join(d.homeDir, ".config", "gcloud", "application_default_credentials.json"))
	}

	for _, path := range candidates {
		if path != "" && fileExists(path) {
			result.Available = true
			result.Source = path
			return result
		}
	}

	result.Source = "no credentials found; metadata server may still apply"
	return result
}

// DetectAzure checks for a shared key; without one blobs are read anonymously
func (d *CredentialDetector) DetectAzure(azure AzureConfig) DetectionResult {
	result := DetectionResult{Scheme: "azblob"}

	if azure.AccountName != "" && azure.AccountKey != "" {
		result.Available = true
		result.Source = "shared key for account " + azure.AccountName
		return result
	}

	result.Source = "no shared key; only public containers can be read"
	return result
}

// DetectKubernetes checks the configured kubeconfig, the in-cluster service
// account and then ~/.kube/config
func (d *CredentialDetector) DetectKubernetes(k8s K8sConfig) DetectionResult {
	result := DetectionResult{Scheme: "k8s"}

	if k8s.Kubeconfig != "" {
		result.Available = fileExists(k8s.Kubeconfig)
		result.Source = k8s.Kubeconfig
		if !result.Available {
			result.Source += " not found"
		}
		return result
	}

	if d.getenv("KUBERNETES_SERVICE_HOST") != "" {
		result.Available = true
		result.Source = "in-cluster service account"
		return result
	}

	if d.homeDir != "" {
		path := filepath.Join(d.homeDir, ".kube", "config")
		if fileExists(path) {
			result.Available = true
			result.Source = path
			if k8s.Context != "" {
				result.Source += " (context " + k8s.Context + ")"
			}
			return result
		}
	}

	result.Source = "no kubeconfig found"
	return result
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
