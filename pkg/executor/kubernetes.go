package executor

import (
	"context"
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/utils"
	"github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	jobNamePrefix   = "automl-train-"
	jobIdLabel      = "automl.devsapp.io/job-id"
	containerName   = "worker"
	jobTTLSeconds   = 3600
	maxK8sNameLen   = 63
	workerCommand   = "worker"
	workerJobIdFlag = "--job-id"
)

// KubernetesExecutor one batch Job per training job, running `automl worker`
type KubernetesExecutor struct {
	clientset kubernetes.Interface
	conf      *config.Config
}

// NewKubernetesExecutor in cluster config unless a kubeconfig is configured
func NewKubernetesExecutor(conf *config.Config) (*KubernetesExecutor, error) {
	var (
		restConf *rest.Config
		err      error
	)
	if conf.Kubeconfig == "" {
		restConf, err = rest.InClusterConfig()
	} else {
		restConf, err = clientcmd.BuildConfigFromFlags("", conf.Kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("kubernetes config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConf)
	if err != nil {
		return nil, err
	}
	return NewKubernetesExecutorWithClient(clientset, conf), nil
}

func NewKubernetesExecutorWithClient(clientset kubernetes.Interface, conf *config.Config) *KubernetesExecutor {
	return &KubernetesExecutor{clientset: clientset, conf: conf}
}

func (k *KubernetesExecutor) Submit(ctx context.Context, j *job.Job) (string, error) {
	created, err := k.clientset.BatchV1().Jobs(k.conf.K8sNamespace).Create(ctx, k.batchJob(j),
		metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	logrus.WithFields(logrus.Fields{"jobId": j.ID}).Infof("created kubernetes job %s/%s",
		created.Namespace, created.Name)
	return created.Namespace + "/" + created.Name, nil
}

func (k *KubernetesExecutor) batchJob(j *job.Job) *batchv1.Job {
	// the search deadline plus time for download and upload
	deadline := int64(j.Config.TimeBudget) + int64(config.HTTPTIMEOUT.Seconds())*2
	env := []corev1.EnvVar{
		{Name: config.REGION, Value: k.conf.Region},
	}
	for _, name := range []string{config.ACCESS_KEY_ID, config.ACCESS_KEY_SECRET, config.ACCESS_KEY_TOKEN} {
		env = append(env, corev1.EnvVar{
			Name: name,
			ValueFrom: &corev1.EnvVarSource{SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: "automl-credentials"},
				Key:                  name,
				Optional:             utils.Bool(true),
			}},
		})
	}
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      utils.SafeName(jobNamePrefix+j.ID, maxK8sNameLen),
			Namespace: k.conf.K8sNamespace,
			Labels:    map[string]string{jobIdLabel: j.ID},
		},
		Spec: batchv1.JobSpec{
			// a failed worker records the failure itself, never retry the pod
			BackoffLimit:            utils.Int32(0),
			ActiveDeadlineSeconds:   utils.Int64(deadline),
			TTLSecondsAfterFinished: utils.Int32(jobTTLSeconds),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{jobIdLabel: j.ID},
				},
				Spec: corev1.PodSpec{
					RestartPolicy:      corev1.RestartPolicyNever,
					ServiceAccountName: k.conf.K8sServiceAccount,
					Containers: []corev1.Container{{
						Name:  containerName,
						Image: k.conf.K8sImage,
						Args:  []string{workerCommand, workerJobIdFlag, j.ID},
						Env:   env,
					}},
				},
			},
		},
	}
}
