package fetcher

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// KubernetesConfig selects the cluster for k8s:// targets. With both fields
// empty the in-cluster config is tried first, then the default kubeconfig.
type KubernetesConfig struct {
	Kubeconfig string
	Context    string
	MaxBytes   int64
}

// KubernetesFetcher reads k8s://namespace/configmap/name targets. A fourth
// path segment selects a single key; otherwise every key is rendered.
type KubernetesFetcher struct {
	clientset kubernetes.Interface
	maxBytes  int64
}

// NewKubernetes wraps an existing clientset
func NewKubernetes(clientset kubernetes.Interface, maxBytes int64) *KubernetesFetcher {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &KubernetesFetcher{clientset: clientset, maxBytes: maxBytes}
}

// KubernetesFactory loads cluster credentials and builds a KubernetesFetcher
func KubernetesFactory(cfg KubernetesConfig) Factory {
	return func(ctx context.Context) (Fetcher, error) {
		restConfig, err := kubernetesRESTConfig(cfg)
		if err != nil {
			return nil, err
		}

		clientset, err := kubernetes.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("create kubernetes client: %w", err)
		}

		return NewKubernetes(clientset, cfg.MaxBytes), nil
	}
}

func kubernetesRESTConfig(cfg KubernetesConfig) (*rest.Config, error) {
	if cfg.Kubeconfig == "" && cfg.Context == "" {
		if c, err := rest.InClusterConfig(); err == nil {
			return c, nil
		}
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.Kubeconfig != "" {
		rules.ExplicitPath = cfg.Kubeconfig
	}

	overrides := &clientcmd.ConfigOverrides{}
	if cfg.Context != "" {
		overrides.CurrentContext = cfg.Context
	}

	c, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return c, nil
}

// Fetch implements Fetcher
func (f *KubernetesFetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	namespace, path, err := splitObjectURL(target)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "configmap" || parts[1] == "" {
		return nil, fmt.Errorf("target %q must look like k8s://namespace/configmap/name[/key]", target)
	}
	name := parts[1]

	cm, err := f.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("k8s get configmap %s/%s: not found: %w", namespace, name, err)
		}
		return nil, fmt.Errorf("k8s get configmap %s/%s: %w", namespace, name, err)
	}

	var content []byte
	if len(parts) == 3 {
		key := parts[2]
		if v, ok := cm.Data[key]; ok {
			content = []byte(v)
		} else if b, ok := cm.BinaryData[key]; ok {
			content = b
		} else {
			return nil, fmt.Errorf("configmap %s/%s has no key %q", namespace, name, key)
		}
	} else {
		// yaml.v3 sorts map keys, so equal data renders to equal bytes
		content, err = yaml.Marshal(configMapContent{Data: cm.Data, BinaryData: cm.BinaryData})
		if err != nil {
			return nil, fmt.Errorf("render configmap %s/%s: %w", namespace, name, err)
		}
	}

	if int64(len(content)) > f.maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes: %w", f.maxBytes, ErrTooLarge)
	}

	return content, nil
}

type configMapContent struct {
	Data       map[string]string `yaml:"data,omitempty"`
	BinaryData map[string][]byte `yaml:"binaryData,omitempty"`
}
