package domain

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_HARDWARE     = "hardware"
	ACTOR_ID_CONTROL_LOOP = "control_loop"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// Hardware actor messages

type ReadSnapshotRequest struct {
	ActorRequestMixIn
}

type ReadSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot *SensorSnapshot
}

type DispatchActionsRequest struct {
	ActorRequestMixIn
	Actions []Action
}

// DispatchActionsResponse reports what the dispatcher actually wrote. Failed
// holds the actions whose actuator write errored; a failed write never aborts
// the rest of the list.
type DispatchActionsResponse struct {
	ActorResponseMixIn
	Applied []Action
	Failed  []Action
}

// AllActuatorsOffRequest drives every registered actuator to OFF. Sent on
// shutdown to leave the pool hardware in a safe state.
type AllActuatorsOffRequest struct {
	ActorRequestMixIn
}

type AllActuatorsOffResponse struct {
	ActorResponseMixIn
}

// MQTT actor messages

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Switches []GenericSwitch
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// Health check

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
