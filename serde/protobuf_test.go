//go:build unit

package serde_test

import (
	"testing"

	"github.com/hugolhafner/go-dispatch/serde"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func sensorStruct(t *testing.T) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(map[string]any{"sensor": "temp-1", "value": 21.5})
	require.NoError(t, err)
	return s
}

func TestProtobuf_RoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		s    serde.Serde[*structpb.Struct]
	}{
		{name: "binary", s: serde.Protobuf[*structpb.Struct]()},
		{name: "json", s: serde.ProtoJSON[*structpb.Struct]()},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				original := sensorStruct(t)

				data, err := tt.s.Serialise("sensors.third", original)
				require.NoError(t, err)

				got, err := tt.s.Deserialise("sensors.third", data)
				require.NoError(t, err)
				require.True(t, proto.Equal(original, got))
			},
		)
	}
}

func TestProtobuf_MatchesWireFormat(t *testing.T) {
	t.Parallel()
	s := serde.Protobuf[*wrapperspb.StringValue]()

	for _, v := range []*wrapperspb.StringValue{wrapperspb.String("Message #1"), wrapperspb.String(""), nil} {
		out, err := s.Serialise("sensors.first", v)
		require.NoError(t, err)

		expected, err := proto.Marshal(v)
		require.NoError(t, err)
		require.Equal(t, expected, out)
	}
}

func TestProtobuf_DeserialiseInvalid(t *testing.T) {
	t.Parallel()
	_, err := serde.Protobuf[*wrapperspb.StringValue]().Deserialise("sensors.first", []byte("not protobuf \xff\xfe"))
	require.ErrorContains(t, err, "sensors.first")

	_, err = serde.ProtoJSON[*timestamppb.Timestamp]().Deserialise("sensors.first", []byte(`{"seconds":`))
	require.Error(t, err)
}

func TestProtoJSON_Timestamp(t *testing.T) {
	t.Parallel()
	s := serde.ProtoJSON[*timestamppb.Timestamp]()

	got, err := s.Deserialise("sensors.first", []byte(`"2024-03-01T12:00:00Z"`))
	require.NoError(t, err)
	require.Equal(t, int64(1709294400), got.GetSeconds())
}
