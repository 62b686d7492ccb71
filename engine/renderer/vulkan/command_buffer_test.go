package vulkan

import "testing"

func TestCommandBufferEndRequiresRecording(t *testing.T) {
	states := []VulkanCommandBufferState{
		COMMAND_BUFFER_STATE_READY,
		COMMAND_BUFFER_STATE_RECORDING_ENDED,
		COMMAND_BUFFER_STATE_SUBMITTED,
		COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}
	for _, state := range states {
		cb := &VulkanCommandBuffer{State: state}
		if err := cb.End(); err == nil {
			t.Errorf("ending from state %d should fail", state)
		}
	}
}

func TestCommandBufferStateTransitions(t *testing.T) {
	cb := &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_RECORDING_ENDED}

	cb.UpdateSubmitted()
	if cb.State != COMMAND_BUFFER_STATE_SUBMITTED {
		t.Errorf("state after submit = %d, want %d", cb.State, COMMAND_BUFFER_STATE_SUBMITTED)
	}

	cb.Reset()
	if cb.State != COMMAND_BUFFER_STATE_READY {
		t.Errorf("state after reset = %d, want %d", cb.State, COMMAND_BUFFER_STATE_READY)
	}
}
