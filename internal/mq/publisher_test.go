package mq

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"sol-tx-engine/internal/pkg/types"
	"sol-tx-engine/internal/pkg/utils"
	"sol-tx-engine/internal/provider"
)

func TestBuildSubmissionJob(t *testing.T) {
	var raw types.Signature
	for i := range raw {
		raw[i] = byte(i)
	}
	rec := provider.SubmissionRecord{
		Signature:    raw.String(),
		Status:       provider.SubmissionConfirmed,
		Slot:         1234,
		Commitment:   "confirmed",
		Instructions: 3,
		At:           time.UnixMilli(1700000000000),
	}

	job, err := buildSubmissionJob("tx_submission", 8, rec)
	require.NoError(t, err)
	assert.Equal(t, "tx_submission", job.Topic)
	assert.Equal(t, int32(utils.PartitionHashBytes(raw[:], 8)), job.Partition)
	assert.Equal(t, []byte(rec.Signature), job.Key)

	var body structpb.Struct
	eventType, err := utils.DecodeEvent(job.Value, &body)
	require.NoError(t, err)
	assert.Equal(t, uint32(provider.SubmissionConfirmed), eventType)
	assert.Equal(t, "confirmed", body.Fields["status"].GetStringValue())
	assert.Equal(t, float64(1234), body.Fields["slot"].GetNumberValue())
	assert.Equal(t, float64(3), body.Fields["instructions"].GetNumberValue())
}

func TestBuildSubmissionJobUnparsableSignature(t *testing.T) {
	job, err := buildSubmissionJob("tx_submission", 8, provider.SubmissionRecord{Signature: "not-base58!", Status: provider.SubmissionFailed})
	require.NoError(t, err)
	assert.Equal(t, kafka.PartitionAny, job.Partition)
}
