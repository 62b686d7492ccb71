package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestVulkanSafeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "\x00"},
		{"main", "main\x00"},
		{"main\x00", "main\x00"},
	}
	for _, tt := range tests {
		if got := VulkanSafeString(tt.in); got != tt.want {
			t.Errorf("VulkanSafeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVulkanResultIsSuccess(t *testing.T) {
	if !VulkanResultIsSuccess(vk.Success) {
		t.Error("vk.Success should be a success")
	}
	if VulkanResultIsSuccess(vk.ErrorDeviceLost) {
		t.Error("vk.ErrorDeviceLost should not be a success")
	}
	if VulkanResultIsSuccess(vk.ErrorOutOfDeviceMemory) {
		t.Error("vk.ErrorOutOfDeviceMemory should not be a success")
	}
}

func TestFindFirstZeroInByteArray(t *testing.T) {
	if got := FindFirstZeroInByteArray([]byte{'a', 'b', 0, 'c'}); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}
